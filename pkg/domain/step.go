package domain

// Step identifies where a user is in the dialogue.
type Step string

const (
	StepFresh            Step = "fresh"
	StepAwaitAccessCode  Step = "await_access_code"
	StepOnboardSex       Step = "onboard_sex"
	StepOnboardAge       Step = "onboard_age"
	StepOnboardHeight    Step = "onboard_height"
	StepOnboardWeight    Step = "onboard_weight"
	StepOnboardActivity  Step = "onboard_activity"
	StepOnboardGoal      Step = "onboard_goal"
	StepReady            Step = "ready"
	StepCategorySelected Step = "category_selected"
)

// onboarding is the ordered list of steps that fill the Draft.
var onboarding = []Step{
	StepOnboardSex,
	StepOnboardAge,
	StepOnboardHeight,
	StepOnboardWeight,
	StepOnboardActivity,
	StepOnboardGoal,
}

// successors holds the single forward edge of every non-steady step.
var successors = map[Step]Step{
	StepFresh:           StepAwaitAccessCode,
	StepAwaitAccessCode: StepOnboardSex,
	StepOnboardSex:      StepOnboardAge,
	StepOnboardAge:      StepOnboardHeight,
	StepOnboardHeight:   StepOnboardWeight,
	StepOnboardWeight:   StepOnboardActivity,
	StepOnboardActivity: StepOnboardGoal,
	StepOnboardGoal:     StepReady,
}

// Next returns the successor of s. Steady steps return themselves.
func (s Step) Next() Step {
	if next, ok := successors[s]; ok {
		return next
	}
	return s
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	if _, ok := successors[s]; ok {
		return true
	}
	return s == StepReady || s == StepCategorySelected
}

// IsOnboarding reports whether s collects a Draft field.
func (s Step) IsOnboarding() bool {
	return s.onboardingIndex() >= 0
}

// IsSteady reports whether the dialogue pass is complete.
func (s Step) IsSteady() bool {
	return s == StepReady || s == StepCategorySelected
}

func (s Step) onboardingIndex() int {
	for i, step := range onboarding {
		if step == s {
			return i
		}
	}
	return -1
}

// OnboardingSteps returns a copy of the ordered onboarding steps.
func OnboardingSteps() []Step {
	out := make([]Step, len(onboarding))
	copy(out, onboarding)
	return out
}

// Progress returns the 1-based position of s in the onboarding and the total count.
// It returns 0 for steps outside the onboarding.
func (s Step) Progress() (int, int) {
	return s.onboardingIndex() + 1, len(onboarding)
}

// Steps returns every step in dialogue order.
func Steps() []Step {
	out := []Step{StepFresh, StepAwaitAccessCode}
	out = append(out, onboarding...)
	return append(out, StepReady, StepCategorySelected)
}

// Before returns the steps a user has gone through to reach s in the current pass.
func (s Step) Before() []Step {
	all := Steps()
	for i, step := range all {
		if step == s {
			return all[:i]
		}
	}
	return nil
}
