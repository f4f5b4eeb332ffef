package domain

// SessionDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for logs and the transition journal.
type SessionDiff struct {
	// UserID is always present to identify the target.
	UserID string `json:"user_id"`

	FromStep *Step `json:"from_step,omitempty"`
	ToStep   *Step `json:"to_step,omitempty"`

	// Added lists Draft fields collected by this transition.
	Added []string `json:"added,omitempty"`

	// Cleared lists Draft fields discarded by this transition.
	Cleared []string `json:"cleared,omitempty"`

	Category *Category `json:"category,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, the diff represents the entire newSession (first contact).
// It returns nil when nothing changed.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{UserID: newSession.UserID}

	if oldSession == nil {
		oldSession = &Session{Step: StepFresh}
	}

	if oldSession.Step != newSession.Step {
		from, to := oldSession.Step, newSession.Step
		diff.FromStep = &from
		diff.ToStep = &to
	}

	if oldSession.Category != newSession.Category {
		c := newSession.Category
		diff.Category = &c
	}

	diff.Added, diff.Cleared = diffFields(oldSession.Draft.Fields(), newSession.Draft.Fields())

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFields(old, new []string) (added, cleared []string) {
	had := make(map[string]bool, len(old))
	for _, f := range old {
		had[f] = true
	}
	has := make(map[string]bool, len(new))
	for _, f := range new {
		has[f] = true
		if !had[f] {
			added = append(added, f)
		}
	}
	for _, f := range old {
		if !has[f] {
			cleared = append(cleared, f)
		}
	}
	return added, cleared
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.ToStep == nil &&
		d.Category == nil &&
		len(d.Added) == 0 &&
		len(d.Cleared) == 0
}
