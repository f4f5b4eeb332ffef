package domain

import "time"

// Draft holds the onboarding fields collected so far in the active dialogue pass.
// Zero values mean "not collected yet".
type Draft struct {
	Sex      Sex      `json:"sex,omitempty"`
	Age      int      `json:"age,omitempty"`
	HeightCm float64  `json:"height_cm,omitempty"`
	WeightKg float64  `json:"weight_kg,omitempty"`
	Activity Activity `json:"activity,omitempty"`
	Goal     Goal     `json:"goal,omitempty"`
}

// Field names reported by Draft.Fields, in collection order.
const (
	FieldSex      = "sex"
	FieldAge      = "age"
	FieldHeight   = "height_cm"
	FieldWeight   = "weight_kg"
	FieldActivity = "activity"
	FieldGoal     = "goal"
)

// fieldOf maps each onboarding step to the field it collects.
var fieldOf = map[Step]string{
	StepOnboardSex:      FieldSex,
	StepOnboardAge:      FieldAge,
	StepOnboardHeight:   FieldHeight,
	StepOnboardWeight:   FieldWeight,
	StepOnboardActivity: FieldActivity,
	StepOnboardGoal:     FieldGoal,
}

// FieldOf returns the Draft field collected by an onboarding step.
func FieldOf(s Step) (string, bool) {
	f, ok := fieldOf[s]
	return f, ok
}

// Fields returns the names of the collected fields in collection order.
func (d Draft) Fields() []string {
	var out []string
	if d.Sex != SexUnset {
		out = append(out, FieldSex)
	}
	if d.Age != 0 {
		out = append(out, FieldAge)
	}
	if d.HeightCm != 0 {
		out = append(out, FieldHeight)
	}
	if d.WeightKg != 0 {
		out = append(out, FieldWeight)
	}
	if d.Activity != ActivityUnset {
		out = append(out, FieldActivity)
	}
	if d.Goal != GoalUnset {
		out = append(out, FieldGoal)
	}
	return out
}

// IsEmpty reports whether no field has been collected.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// ConsistentWith reports whether the Draft holds exactly the fields of the
// onboarding steps preceding step. Outside the onboarding it must be empty.
func (d Draft) ConsistentWith(step Step) bool {
	idx := step.onboardingIndex()
	if idx < 0 {
		return d.IsEmpty()
	}
	got := d.Fields()
	if len(got) != idx {
		return false
	}
	for i, f := range got {
		if fieldOf[onboarding[i]] != f {
			return false
		}
	}
	return true
}

// Complete reports whether every field is collected.
func (d Draft) Complete() bool {
	return len(d.Fields()) == len(onboarding)
}

// Profile converts a complete Draft into the finalize payload.
func (d Draft) Profile() Profile {
	return Profile{
		Sex:            d.Sex,
		Age:            d.Age,
		HeightCm:       d.HeightCm,
		WeightKg:       d.WeightKg,
		Activity:       d.Activity,
		ActivityFactor: d.Activity.Factor(),
		Goal:           d.Goal,
	}
}

// Session represents the persisted dialogue progress of one user.
type Session struct {
	// UserID is the opaque, stable identity of the end user.
	UserID string `json:"user_id"`

	// Step is the single active dialogue position.
	Step Step `json:"step"`

	// Draft accumulates onboarding fields until the pass completes or resets.
	Draft Draft `json:"draft"`

	// Category is the last selected meal category (post-onboarding).
	Category Category `json:"category,omitempty"`

	// Version is bumped by the store on every successful save.
	// Zero means the session has never been persisted.
	Version int64 `json:"version"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates the implicit session of a user never seen before.
func NewSession(userID string) *Session {
	return &Session{
		UserID: userID,
		Step:   StepFresh,
	}
}

// Snapshot returns a copy of the session.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Reset discards any in-progress dialogue and waits for an access code.
func (s *Session) Reset() {
	s.Step = StepAwaitAccessCode
	s.Draft = Draft{}
	s.Category = CategoryNone
}

// SameState reports whether two sessions hold the same dialogue state.
// Version and UpdatedAt are bookkeeping and are ignored.
func (s *Session) SameState(o *Session) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Step == o.Step && s.Category == o.Category && s.Draft == o.Draft
}
