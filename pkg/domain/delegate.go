package domain

// Profile is the finalized onboarding payload sent to the profile delegate.
type Profile struct {
	Sex            Sex      `json:"sex"`
	Age            int      `json:"age"`
	HeightCm       float64  `json:"height_cm"`
	WeightKg       float64  `json:"weight_kg"`
	Activity       Activity `json:"activity"`
	ActivityFactor float64  `json:"activity_factor"`
	Goal           Goal     `json:"goal"`
}

// Nutrients is an energy and macro breakdown.
type Nutrients struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

// Add returns the element-wise sum of n and o.
func (n Nutrients) Add(o Nutrients) Nutrients {
	return Nutrients{
		Kcal:     n.Kcal + o.Kcal,
		ProteinG: n.ProteinG + o.ProteinG,
		FatG:     n.FatG + o.FatG,
		CarbsG:   n.CarbsG + o.CarbsG,
	}
}

// Scale returns n multiplied by f.
func (n Nutrients) Scale(f float64) Nutrients {
	return Nutrients{
		Kcal:     n.Kcal * f,
		ProteinG: n.ProteinG * f,
		FatG:     n.FatG * f,
		CarbsG:   n.CarbsG * f,
	}
}

// Targets are the daily goals computed by the profile delegate.
type Targets Nutrients

// ItemEntry is a request to log one catalog item.
type ItemEntry struct {
	UserID   string   `json:"user_id"`
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Quantity float64  `json:"quantity"`
	// Day is the local calendar day, formatted as 2006-01-02.
	Day string `json:"day"`
	// IdempotencyKey lets the delegate drop a replayed request.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// LogResult is the outcome of a successful item log.
type LogResult struct {
	// Matched is the catalog name the delegate resolved the item to.
	Matched string    `json:"matched,omitempty"`
	Item    Nutrients `json:"item"`
	Day     Nutrients `json:"day"`
	Targets *Targets  `json:"targets,omitempty"`
}

// DaySummary is the read-only view returned by the status query.
type DaySummary struct {
	Day        string                 `json:"day"`
	Totals     Nutrients              `json:"totals"`
	ByCategory map[Category]Nutrients `json:"by_category,omitempty"`
	Targets    *Targets               `json:"targets,omitempty"`
}

// Delegate operation names, shared by gateways, logs and metrics.
const (
	OpActivateAccount = "activate_account"
	OpFinalizeProfile = "finalize_profile"
	OpLogItem         = "log_item"
	OpDaySummary      = "day_summary"
)
