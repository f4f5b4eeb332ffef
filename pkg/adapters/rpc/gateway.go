package rpc

import (
	"context"
	"errors"

	"github.com/aretw0/nutri/pkg/domain"
)

// Function names on the backend.
const (
	FnActivateAccount = domain.OpActivateAccount
	FnFinalizeProfile = domain.OpFinalizeProfile
	FnLogItem         = domain.OpLogItem
	FnDaySummary      = domain.OpDaySummary
)

type activateArgs struct {
	UserID         string `json:"p_user_id"`
	Code           string `json:"p_code"`
	IdempotencyKey string `json:"p_idempotency_key,omitempty"`
}

type activateReply struct {
	OK bool `json:"ok"`
}

type finalizeArgs struct {
	UserID         string  `json:"p_user_id"`
	Sex            string  `json:"p_sex"`
	Age            int     `json:"p_age"`
	HeightCm       float64 `json:"p_height_cm"`
	WeightKg       float64 `json:"p_weight_kg"`
	Activity       string  `json:"p_activity"`
	ActivityFactor float64 `json:"p_activity_factor"`
	Goal           string  `json:"p_goal"`
	IdempotencyKey string  `json:"p_idempotency_key,omitempty"`
}

type finalizeReply struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Targets domain.Targets `json:"targets"`
}

type logArgs struct {
	UserID         string  `json:"p_user_id"`
	Category       string  `json:"p_category"`
	Name           string  `json:"p_name"`
	Quantity       float64 `json:"p_quantity"`
	Day            string  `json:"p_day"`
	IdempotencyKey string  `json:"p_idempotency_key,omitempty"`
}

type logReply struct {
	Found bool `json:"found"`
	domain.LogResult
}

type summaryArgs struct {
	UserID string `json:"p_user_id"`
	Day    string `json:"p_day"`
}

type summaryReply struct {
	Profile bool `json:"profile"`
	domain.DaySummary
}

// ActivateAccount redeems an access code. A replay with the same key must be
// answered by the backend as the first redemption was.
func (c *Client) ActivateAccount(ctx context.Context, userID, code, idempotencyKey string) error {
	args := activateArgs{UserID: userID, Code: code, IdempotencyKey: idempotencyKey}
	var out activateReply
	if err := c.call(ctx, FnActivateAccount, args, &out); err != nil {
		return err
	}
	if !out.OK {
		return domain.ErrInvalidCode
	}
	return nil
}

// FinalizeProfile submits the onboarding answers and returns the daily targets.
// A refusal of the backend is reported as a transport error: the profile was
// validated locally, so the user can only retry.
func (c *Client) FinalizeProfile(ctx context.Context, userID string, p domain.Profile, idempotencyKey string) (domain.Targets, error) {
	args := finalizeArgs{
		UserID:         userID,
		Sex:            string(p.Sex),
		Age:            p.Age,
		HeightCm:       p.HeightCm,
		WeightKg:       p.WeightKg,
		Activity:       string(p.Activity),
		ActivityFactor: p.ActivityFactor,
		Goal:           string(p.Goal),
		IdempotencyKey: idempotencyKey,
	}
	var out finalizeReply
	if err := c.call(ctx, FnFinalizeProfile, args, &out); err != nil {
		return domain.Targets{}, err
	}
	if !out.OK {
		msg := out.Error
		if msg == "" {
			msg = "profile refused"
		}
		return domain.Targets{}, &domain.TransportError{Op: FnFinalizeProfile, Err: errors.New(msg)}
	}
	return out.Targets, nil
}

// LogItem records a food item against the user's day.
func (c *Client) LogItem(ctx context.Context, e domain.ItemEntry) (domain.LogResult, error) {
	args := logArgs{
		UserID:         e.UserID,
		Category:       string(e.Category),
		Name:           e.Name,
		Quantity:       e.Quantity,
		Day:            e.Day,
		IdempotencyKey: e.IdempotencyKey,
	}
	var out logReply
	if err := c.call(ctx, FnLogItem, args, &out); err != nil {
		return domain.LogResult{}, err
	}
	if !out.Found {
		return domain.LogResult{}, domain.ErrItemNotFound
	}
	return out.LogResult, nil
}

// Summary reads the totals of a day.
func (c *Client) Summary(ctx context.Context, userID, day string) (domain.DaySummary, error) {
	var out summaryReply
	if err := c.call(ctx, FnDaySummary, summaryArgs{UserID: userID, Day: day}, &out); err != nil {
		return domain.DaySummary{}, err
	}
	if !out.Profile {
		return domain.DaySummary{}, domain.ErrProfileMissing
	}
	if out.Day == "" {
		out.Day = day
	}
	return out.DaySummary, nil
}
