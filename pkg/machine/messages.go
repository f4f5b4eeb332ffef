package machine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/parser"
)

const (
	msgWelcome       = "¡Hola! Soy tu asistente de nutrición. Para empezar, envíame tu código de acceso."
	msgAskCode       = "Envíame tu código de acceso para activar tu cuenta."
	msgCodeRejected  = "Ese código no es válido. Revísalo e inténtalo de nuevo."
	msgTryAgain      = "No pude completar la operación en este momento. Inténtalo de nuevo en unos minutos."
	msgActivated     = "¡Cuenta activada! Vamos a configurar tu perfil."
	msgReset         = "Listo, empezamos de nuevo. Envíame tu código de acceso."
	msgChooseFirst   = "Primero elige una categoría: desayuno, almuerzo, cena o snack."
	msgNoProfile     = "Aún no tienes un perfil registrado."
	msgItemFormat    = "No entendí. Envía el alimento como «nombre cantidad», por ejemplo: arroz 200g. También puedes elegir una categoría: desayuno, almuerzo, cena o snack."
	msgCategoryHint  = "Envía cada alimento como «nombre cantidad», por ejemplo: pollo cocido 180g."
	msgCategoryNames = "desayuno, almuerzo, cena o snack"
)

const msgHelp = `Comandos disponibles:
/start - comenzar o repetir la pregunta actual
/status - ver tu resumen del día
/reset - reiniciar la configuración
/help - mostrar esta ayuda

Después de configurar tu perfil, elige una categoría (desayuno, almuerzo, cena o snack) y envía cada alimento como «nombre cantidad», por ejemplo: pollo cocido 180g.`

// prompts holds the question asked at each onboarding step.
var prompts = map[domain.Step]string{
	domain.StepOnboardSex:      "¿Cuál es tu sexo? Responde: hombre o mujer.",
	domain.StepOnboardAge:      "¿Cuántos años tienes? (número entero entre 10 y 90)",
	domain.StepOnboardHeight:   "¿Cuánto mides en centímetros? (entre 120 y 230)",
	domain.StepOnboardWeight:   "¿Cuánto pesas en kilogramos? (entre 30 y 250)",
	domain.StepOnboardActivity: "¿Cuál es tu nivel de actividad? sedentario, ligero, moderado, alto o muy alto.",
	domain.StepOnboardGoal:     "¿Cuál es tu objetivo? deficit, mantenimiento o superavit.",
}

// promptFor returns the message that asks for the input the session is waiting for.
func promptFor(s *domain.Session) string {
	switch {
	case s.Step == domain.StepFresh || s.Step == domain.StepAwaitAccessCode:
		return msgAskCode
	case s.Step.IsOnboarding():
		return prompts[s.Step]
	case s.Step == domain.StepCategorySelected:
		return categorySelected(s.Category)
	}
	return msgChooseFirst
}

func categorySelected(c domain.Category) string {
	return fmt.Sprintf("Categoría: %s. %s", c, msgCategoryHint)
}

func profileReady(t domain.Targets) string {
	var b strings.Builder
	b.WriteString("¡Perfil listo! Tus objetivos diarios:\n")
	writeNutrients(&b, domain.Nutrients(t))
	b.WriteString("\nElige una categoría para registrar: ")
	b.WriteString(msgCategoryNames)
	b.WriteString(".")
	return b.String()
}

func itemLogged(c domain.Category, it parser.Item, res domain.LogResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Registrado en %s: %s %s%s → %s kcal (P %s g · G %s g · C %s g).\n",
		c, it.Name, parser.FormatQuantity(it.Quantity), unitOf(it),
		num(res.Item.Kcal), num(res.Item.ProteinG), num(res.Item.FatG), num(res.Item.CarbsG))
	fmt.Fprintf(&b, "Total del día: %s kcal", num(res.Day.Kcal))
	if res.Targets != nil && res.Targets.Kcal > 0 {
		fmt.Fprintf(&b, " de %s", num(res.Targets.Kcal))
	}
	b.WriteString(".")
	return b.String()
}

func itemNotFound(name string) string {
	return fmt.Sprintf("No encontré «%s» en el catálogo. Prueba con otro nombre.", name)
}

func summary(s domain.DaySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resumen del %s:\n", s.Day)
	writeNutrients(&b, s.Totals)
	for _, c := range domain.Categories {
		if n, ok := s.ByCategory[c]; ok {
			fmt.Fprintf(&b, "  %s: %s kcal\n", c, num(n.Kcal))
		}
	}
	if s.Targets != nil && s.Targets.Kcal > 0 {
		remaining := s.Targets.Kcal - s.Totals.Kcal
		fmt.Fprintf(&b, "Objetivo: %s kcal (restan %s)", num(s.Targets.Kcal), num(remaining))
	}
	return strings.TrimRight(b.String(), "\n")
}

func onboardingStatus(s *domain.Session) string {
	if !s.Step.IsOnboarding() {
		return "Tu cuenta aún no está activada. " + msgAskCode
	}
	pos, total := s.Step.Progress()
	return fmt.Sprintf("Estás configurando tu perfil (paso %d de %d). %s", pos, total, prompts[s.Step])
}

func writeNutrients(b *strings.Builder, n domain.Nutrients) {
	fmt.Fprintf(b, "• Calorías: %s kcal\n", num(n.Kcal))
	fmt.Fprintf(b, "• Proteína: %s g\n", num(n.ProteinG))
	fmt.Fprintf(b, "• Grasas: %s g\n", num(n.FatG))
	fmt.Fprintf(b, "• Carbohidratos: %s g\n", num(n.CarbsG))
}

func unitOf(it parser.Item) string {
	if it.Unit == "" {
		return "g"
	}
	return it.Unit
}

// num rounds to one decimal and drops a trailing ".0".
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
