package domain

import (
	"maps"
	"slices"
)

// The lookups below expect tokens already normalized by parser.Normalize
// (trimmed, lower case, no diacritics, single spaces).

// Category is the meal bucket a logged item belongs to.
type Category string

const (
	CategoryNone      Category = ""
	CategoryBreakfast Category = "desayuno"
	CategoryLunch     Category = "almuerzo"
	CategoryDinner    Category = "cena"
	CategorySnack     Category = "snack"
)

// Categories lists the closed set of categories in display order.
var Categories = []Category{CategoryBreakfast, CategoryLunch, CategoryDinner, CategorySnack}

var categoryTokens = map[string]Category{
	"desayuno":  CategoryBreakfast,
	"breakfast": CategoryBreakfast,
	"almuerzo":  CategoryLunch,
	"comida":    CategoryLunch,
	"lunch":     CategoryLunch,
	"cena":      CategoryDinner,
	"dinner":    CategoryDinner,
	"snack":     CategorySnack,
	"merienda":  CategorySnack,
}

// ParseCategory resolves a normalized token to a Category.
func ParseCategory(token string) (Category, bool) {
	c, ok := categoryTokens[token]
	return c, ok
}

// Sex is the biological sex used by the profile computation.
type Sex string

const (
	SexUnset  Sex = ""
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

var sexTokens = map[string]Sex{
	"hombre":    SexMale,
	"masculino": SexMale,
	"male":      SexMale,
	"mujer":     SexFemale,
	"femenino":  SexFemale,
	"female":    SexFemale,
}

// ParseSex resolves a normalized token to a Sex.
func ParseSex(token string) (Sex, bool) {
	s, ok := sexTokens[token]
	return s, ok
}

// Activity is the declared physical activity tier.
type Activity string

const (
	ActivityUnset     Activity = ""
	ActivitySedentary Activity = "sedentary"
	ActivityLight     Activity = "light"
	ActivityModerate  Activity = "moderate"
	ActivityHigh      Activity = "high"
	ActivityVeryHigh  Activity = "very_high"
)

// Activities lists the closed set of activity tiers in ascending order.
var Activities = []Activity{ActivitySedentary, ActivityLight, ActivityModerate, ActivityHigh, ActivityVeryHigh}

var activityFactors = map[Activity]float64{
	ActivitySedentary: 1.2,
	ActivityLight:     1.375,
	ActivityModerate:  1.55,
	ActivityHigh:      1.725,
	ActivityVeryHigh:  1.9,
}

var activityTokens = map[string]Activity{
	"sedentario": ActivitySedentary,
	"sedentary":  ActivitySedentary,
	"ligero":     ActivityLight,
	"light":      ActivityLight,
	"moderado":   ActivityModerate,
	"moderate":   ActivityModerate,
	"alto":       ActivityHigh,
	"high":       ActivityHigh,
	"muy alto":   ActivityVeryHigh,
	"very high":  ActivityVeryHigh,
}

// ParseActivity resolves a normalized token to an Activity.
func ParseActivity(token string) (Activity, bool) {
	a, ok := activityTokens[token]
	return a, ok
}

// Factor returns the energy multiplier of the tier, or 0 when unset.
func (a Activity) Factor() float64 {
	return activityFactors[a]
}

// Label returns the Spanish token users type for the tier.
func (a Activity) Label() string {
	switch a {
	case ActivitySedentary:
		return "sedentario"
	case ActivityLight:
		return "ligero"
	case ActivityModerate:
		return "moderado"
	case ActivityHigh:
		return "alto"
	case ActivityVeryHigh:
		return "muy alto"
	}
	return ""
}

// Goal is the caloric objective of the user.
type Goal string

const (
	GoalUnset       Goal = ""
	GoalDeficit     Goal = "deficit"
	GoalMaintenance Goal = "maintenance"
	GoalSurplus     Goal = "surplus"
)

var goalTokens = map[string]Goal{
	"deficit":       GoalDeficit,
	"mantenimiento": GoalMaintenance,
	"maintenance":   GoalMaintenance,
	"superavit":     GoalSurplus,
	"surplus":       GoalSurplus,
}

// ParseGoal resolves a normalized token to a Goal.
func ParseGoal(token string) (Goal, bool) {
	g, ok := goalTokens[token]
	return g, ok
}

// Command is a global chat command recognized in any step.
type Command string

const (
	CommandNone   Command = ""
	CommandHelp   Command = "help"
	CommandStatus Command = "status"
	CommandReset  Command = "reset"
	CommandStart  Command = "start"
)

var commandTokens = map[string]Command{
	"help":    CommandHelp,
	"ayuda":   CommandHelp,
	"status":  CommandStatus,
	"estado":  CommandStatus,
	"resumen": CommandStatus,
	"reset":   CommandReset,
	"start":   CommandStart,
}

// ParseCommand resolves a normalized token to a Command.
// A leading "/" and a Telegram "@botname" suffix are ignored.
func ParseCommand(token string) (Command, bool) {
	if len(token) > 0 && token[0] == '/' {
		token = token[1:]
		for i := 0; i < len(token); i++ {
			if token[i] == '@' {
				token = token[:i]
				break
			}
		}
	}
	c, ok := commandTokens[token]
	return c, ok
}

// Vocabulary lists every accepted token by kind, sorted.
func Vocabulary() map[string][]string {
	return map[string][]string{
		"categories": tokens(categoryTokens),
		"sex":        tokens(sexTokens),
		"activity":   tokens(activityTokens),
		"goals":      tokens(goalTokens),
		"commands":   tokens(commandTokens),
	}
}

func tokens[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
