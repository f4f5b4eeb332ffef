package ports

import (
	"context"

	"github.com/aretw0/nutri/pkg/domain"
)

// Gateway invokes the remote business operations the dialogue delegates to.
//
// Every method distinguishes a domain rejection (a sentinel from pkg/domain) from an
// infrastructure failure (*domain.TransportError, matching domain.ErrTransport).
// Implementations perform no retries; a timeout is a transport failure.
//
// Mutating operations carry the inbound event id as an idempotency key: a store
// conflict re-runs the whole handling cycle, and with it the delegate call.
type Gateway interface {
	// ActivateAccount redeems an access code. Returns domain.ErrInvalidCode on rejection.
	ActivateAccount(ctx context.Context, userID, code, idempotencyKey string) error

	// FinalizeProfile stores the onboarding profile and returns the daily targets.
	FinalizeProfile(ctx context.Context, userID string, profile domain.Profile, idempotencyKey string) (domain.Targets, error)

	// LogItem records a catalog item. Returns domain.ErrItemNotFound when the
	// catalog has no match.
	LogItem(ctx context.Context, entry domain.ItemEntry) (domain.LogResult, error)

	// Summary is a read-only query of the totals of a day.
	// Returns domain.ErrProfileMissing when the user never finalized a profile.
	Summary(ctx context.Context, userID, day string) (domain.DaySummary, error)
}
