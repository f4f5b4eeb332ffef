package machine

import (
	"strings"

	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/parser"
)

// Accepted ranges of the numeric onboarding fields (inclusive).
const (
	MinAge    = 10
	MaxAge    = 90
	MinHeight = 120.0
	MaxHeight = 230.0
	MinWeight = 30.0
	MaxWeight = 250.0
)

// validator checks the raw text of one onboarding step. On success it writes the
// value into the draft and returns ""; otherwise it returns a corrective message
// and leaves the draft alone.
type validator func(text string, d *domain.Draft) string

// validators holds exactly one validator per onboarding step.
var validators = map[domain.Step]validator{
	domain.StepOnboardSex:      validateSex,
	domain.StepOnboardAge:      validateAge,
	domain.StepOnboardHeight:   validateHeight,
	domain.StepOnboardWeight:   validateWeight,
	domain.StepOnboardActivity: validateActivity,
	domain.StepOnboardGoal:     validateGoal,
}

func validateSex(text string, d *domain.Draft) string {
	sex, ok := domain.ParseSex(parser.Normalize(text))
	if !ok {
		return "Opción no válida. Responde: hombre o mujer."
	}
	d.Sex = sex
	return ""
}

func validateAge(text string, d *domain.Draft) string {
	age, ok := parser.ParseInt(text)
	if !ok || age < MinAge || age > MaxAge {
		return "La edad debe ser un número entero entre 10 y 90."
	}
	d.Age = age
	return ""
}

func validateHeight(text string, d *domain.Draft) string {
	h, ok := parser.ParseDecimal(stripUnit(text, "cm"))
	if !ok || h < MinHeight || h > MaxHeight {
		return "La altura debe ser un número entre 120 y 230 (en centímetros)."
	}
	d.HeightCm = h
	return ""
}

func validateWeight(text string, d *domain.Draft) string {
	w, ok := parser.ParseDecimal(stripUnit(text, "kg"))
	if !ok || w < MinWeight || w > MaxWeight {
		return "El peso debe ser un número entre 30 y 250 (en kilogramos)."
	}
	d.WeightKg = w
	return ""
}

func validateActivity(text string, d *domain.Draft) string {
	a, ok := domain.ParseActivity(parser.Normalize(text))
	if !ok {
		return "Opción no válida. Responde: sedentario, ligero, moderado, alto o muy alto."
	}
	d.Activity = a
	return ""
}

func validateGoal(text string, d *domain.Draft) string {
	g, ok := domain.ParseGoal(parser.Normalize(text))
	if !ok {
		return "Opción no válida. Responde: deficit, mantenimiento o superavit."
	}
	d.Goal = g
	return ""
}

// stripUnit drops an optional trailing unit token ("175 cm", "80kg").
func stripUnit(text, unit string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if n := len(t) - len(unit); n >= 0 && t[n:] == unit {
		return t[:n]
	}
	return t
}
