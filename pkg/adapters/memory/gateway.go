package memory

import (
	"context"
	"math"
	"sync"

	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/parser"
)

// Call records one invocation received by the Gateway.
type Call struct {
	Op      string
	UserID  string
	Code    string
	Key     string
	Profile domain.Profile
	Entry   domain.ItemEntry
	Day     string
}

// Gateway implements ports.Gateway in process.
// It backs tests and the offline chat mode; its numbers are rough estimates,
// the real computation lives in the remote backend.
type Gateway struct {
	mu sync.Mutex

	codes     map[string]bool
	singleUse bool
	catalog   map[string]domain.Nutrients // per 100 units, keyed by normalized name

	targets map[string]domain.Targets
	days    map[string]map[string]map[domain.Category]domain.Nutrients // user -> day -> category
	seen    map[string]domain.LogResult                                // idempotency key -> result
	redeems map[string]string                                          // idempotency key -> code

	failures map[string][]error
	calls    []Call
}

// GatewayOption configures the Gateway.
type GatewayOption func(*Gateway)

// WithCodes sets the accepted access codes.
func WithCodes(codes ...string) GatewayOption {
	return func(g *Gateway) {
		for _, c := range codes {
			g.codes[c] = true
		}
	}
}

// WithSingleUseCodes makes every code redeemable once, as real invitations are.
func WithSingleUseCodes() GatewayOption {
	return func(g *Gateway) {
		g.singleUse = true
	}
}

// WithCatalog adds catalog entries, given per 100 units.
func WithCatalog(entries map[string]domain.Nutrients) GatewayOption {
	return func(g *Gateway) {
		for name, n := range entries {
			g.catalog[parser.Normalize(name)] = n
		}
	}
}

// DefaultCatalog is a small catalog for local runs.
var DefaultCatalog = map[string]domain.Nutrients{
	"pollo cocido": {Kcal: 165, ProteinG: 31, FatG: 3.6, CarbsG: 0},
	"arroz":        {Kcal: 130, ProteinG: 2.7, FatG: 0.3, CarbsG: 28},
	"pepino":       {Kcal: 15, ProteinG: 0.7, FatG: 0.1, CarbsG: 3.6},
	"avena":        {Kcal: 389, ProteinG: 16.9, FatG: 6.9, CarbsG: 66},
	"huevo":        {Kcal: 155, ProteinG: 13, FatG: 11, CarbsG: 1.1},
	"platano":      {Kcal: 89, ProteinG: 1.1, FatG: 0.3, CarbsG: 23},
}

// NewGateway creates an in-memory gateway.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		codes:    make(map[string]bool),
		catalog:  make(map[string]domain.Nutrients),
		targets:  make(map[string]domain.Targets),
		days:     make(map[string]map[string]map[domain.Category]domain.Nutrients),
		seen:     make(map[string]domain.LogResult),
		redeems:  make(map[string]string),
		failures: make(map[string][]error),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FailNext makes the next call of op return err instead of running.
// Calls queue up: FailNext twice fails the next two calls.
func (g *Gateway) FailNext(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = append(g.failures[op], err)
}

// Calls returns the invocations received so far.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// CallsTo returns the invocations of a single operation.
func (g *Gateway) CallsTo(op string) []Call {
	var out []Call
	for _, c := range g.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// record appends the call and pops an injected failure, if any. Caller holds mu.
func (g *Gateway) record(c Call) error {
	g.calls = append(g.calls, c)
	if queue := g.failures[c.Op]; len(queue) > 0 {
		g.failures[c.Op] = queue[1:]
		return queue[0]
	}
	return nil
}

// ActivateAccount accepts any configured code. With WithSingleUseCodes a code is
// consumed by its first redemption; replaying that redemption with the same key
// still succeeds.
func (g *Gateway) ActivateAccount(ctx context.Context, userID, code, idempotencyKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: domain.OpActivateAccount, UserID: userID, Code: code, Key: idempotencyKey}); err != nil {
		return err
	}
	if idempotencyKey != "" && g.redeems[idempotencyKey] == code {
		return nil
	}
	if !g.codes[code] {
		return domain.ErrInvalidCode
	}
	if g.singleUse {
		delete(g.codes, code)
	}
	if idempotencyKey != "" {
		g.redeems[idempotencyKey] = code
	}
	return nil
}

// FinalizeProfile stores a rough daily target for the user.
func (g *Gateway) FinalizeProfile(ctx context.Context, userID string, profile domain.Profile, idempotencyKey string) (domain.Targets, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: domain.OpFinalizeProfile, UserID: userID, Profile: profile, Key: idempotencyKey}); err != nil {
		return domain.Targets{}, err
	}

	t := estimateTargets(profile)
	g.targets[userID] = t
	return t, nil
}

// LogItem adds the scaled catalog entry to the user's day.
func (g *Gateway) LogItem(ctx context.Context, entry domain.ItemEntry) (domain.LogResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: domain.OpLogItem, UserID: entry.UserID, Entry: entry}); err != nil {
		return domain.LogResult{}, err
	}

	if entry.IdempotencyKey != "" {
		if res, ok := g.seen[entry.IdempotencyKey]; ok {
			return res, nil
		}
	}

	key := parser.Normalize(entry.Name)
	per100, ok := g.catalog[key]
	if !ok {
		return domain.LogResult{}, domain.ErrItemNotFound
	}

	item := per100.Scale(entry.Quantity / 100)
	day := g.dayOf(entry.UserID, entry.Day)
	day[entry.Category] = day[entry.Category].Add(item)

	res := domain.LogResult{
		Matched: key,
		Item:    item,
		Day:     sumDay(day),
	}
	if t, ok := g.targets[entry.UserID]; ok {
		res.Targets = &t
	}
	if entry.IdempotencyKey != "" {
		g.seen[entry.IdempotencyKey] = res
	}
	return res, nil
}

// Summary returns the totals of a day without changing anything.
func (g *Gateway) Summary(ctx context.Context, userID, day string) (domain.DaySummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: domain.OpDaySummary, UserID: userID, Day: day}); err != nil {
		return domain.DaySummary{}, err
	}

	t, ok := g.targets[userID]
	if !ok {
		return domain.DaySummary{}, domain.ErrProfileMissing
	}

	summary := domain.DaySummary{Day: day, Targets: &t}
	if byCat, ok := g.days[userID][day]; ok {
		summary.ByCategory = make(map[domain.Category]domain.Nutrients, len(byCat))
		for c, n := range byCat {
			summary.ByCategory[c] = n
		}
		summary.Totals = sumDay(byCat)
	}
	return summary, nil
}

func (g *Gateway) dayOf(userID, day string) map[domain.Category]domain.Nutrients {
	byDay, ok := g.days[userID]
	if !ok {
		byDay = make(map[string]map[domain.Category]domain.Nutrients)
		g.days[userID] = byDay
	}
	byCat, ok := byDay[day]
	if !ok {
		byCat = make(map[domain.Category]domain.Nutrients)
		byDay[day] = byCat
	}
	return byCat
}

func sumDay(byCat map[domain.Category]domain.Nutrients) domain.Nutrients {
	var total domain.Nutrients
	for _, n := range byCat {
		total = total.Add(n)
	}
	return total
}

// estimateTargets uses Mifflin-St Jeor with a flat goal adjustment.
func estimateTargets(p domain.Profile) domain.Targets {
	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Sex == domain.SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}
	kcal := bmr * p.ActivityFactor
	switch p.Goal {
	case domain.GoalDeficit:
		kcal *= 0.85
	case domain.GoalSurplus:
		kcal *= 1.10
	}
	protein := 2 * p.WeightKg
	fat := kcal * 0.25 / 9
	carbs := math.Max(0, (kcal-protein*4-fat*9)/4)
	return domain.Targets{
		Kcal:     math.Round(kcal),
		ProteinG: math.Round(protein),
		FatG:     math.Round(fat),
		CarbsG:   math.Round(carbs),
	}
}
