package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/nutri/pkg/domain"
)

// Overlay contains session data to visualize on the graph.
type Overlay struct {
	Visited []domain.Step
	Current domain.Step
}

// OverlayFor highlights where a session stands in the dialogue.
func OverlayFor(s *domain.Session) *Overlay {
	return &Overlay{Visited: s.Step.Before(), Current: s.Step}
}

// GenerateMermaid produces a Mermaid flowchart of the dialogue.
// It applies semantic styling:
// - Fresh: ((Circle))
// - Steps that call the backend: [[Subroutine]]
// - Onboarding questions: [/Parallelogram/]
// - Steady steps: [Rectangle]
// The reset command is drawn as a dotted edge from every step past activation.
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, step := range domain.Steps() {
		opener, closer := "[", "]"
		label := string(step)

		switch {
		case step == domain.StepFresh:
			opener, closer = "((", "))"
		case step == domain.StepAwaitAccessCode || step == domain.StepOnboardGoal:
			opener, closer = "[[", "]]"
		case step.IsOnboarding():
			opener, closer = "[/", "/]"
		}
		if field, ok := domain.FieldOf(step); ok {
			label = fmt.Sprintf("%s <br/> %s", step, field)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", step, opener, label, closer)

		if next := step.Next(); next != step {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", step, edgeLabel(step), next)
		}
		if step.IsSteady() {
			fmt.Fprintf(&sb, "    %s -- \"categoría\" --> %s\n", step, domain.StepCategorySelected)
		}
		if step != domain.StepFresh && step != domain.StepAwaitAccessCode {
			fmt.Fprintf(&sb, "    %s -. ⚡ reset .-> %s\n", step, domain.StepAwaitAccessCode)
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.Step]bool)
		for _, step := range overlay.Visited {
			if step.Valid() && !seen[step] {
				seen[step] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", step)
			}
		}
		if overlay.Current.Valid() {
			fmt.Fprintf(&sb, "    class %s current;\n", overlay.Current)
		}
	}

	return sb.String()
}

func edgeLabel(from domain.Step) string {
	switch from {
	case domain.StepFresh:
		return "primer mensaje"
	case domain.StepAwaitAccessCode:
		return "código válido"
	case domain.StepOnboardGoal:
		return "perfil guardado"
	}
	return "válido"
}
