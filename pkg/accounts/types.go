package accounts

import (
	"context"
	"errors"
	"time"
)

// ErrCompanyNotFound is returned when no company exists with the given ID.
var ErrCompanyNotFound = errors.New("company not found")

// UnlimitedTokens is the plan sentinel for "no monthly ceiling".
const UnlimitedTokens int64 = -1

// StatusActive is the only subscription status that grants access.
const StatusActive = "ACTIVE"

// Directory looks up the records consumed by the quota resolver.
// Implementations must be safe for concurrent use.
type Directory interface {
	// GetCompany returns the company with its subscription and plan, or
	// ErrCompanyNotFound.
	GetCompany(ctx context.Context, companyID string) (*Company, error)

	// GetTrialPlan returns the plan flagged as the trial tier, or nil if
	// none is flagged.
	GetTrialPlan(ctx context.Context) (*Plan, error)
}

// Company is the slice of a company record that governs quota.
type Company struct {
	ID string

	// TrialEndsAt is the end of the trial window, nil if the company never
	// had one.
	TrialEndsAt *time.Time
	TrialUsed   bool

	// MonthlyTokenLimit is a manual override. Only positive values apply.
	MonthlyTokenLimit *int64

	Subscription *Subscription
}

// Subscription is a company's billing state.
type Subscription struct {
	Status           string
	CurrentPeriodEnd *time.Time
	Plan             *Plan
}

// Plan is a billing tier.
type Plan struct {
	Name string

	// MaxTokensMonth is the monthly ceiling; UnlimitedTokens means none.
	MaxTokensMonth int64
	IsTrial        bool
}

// Unlimited reports whether the plan has no monthly ceiling.
func (p *Plan) Unlimited() bool {
	return p != nil && p.MaxTokensMonth == UnlimitedTokens
}

// HasActiveSubscription reports whether the subscription is ACTIVE and its
// period, if bounded, has not ended at now.
func (c *Company) HasActiveSubscription(now time.Time) bool {
	if c == nil || c.Subscription == nil {
		return false
	}
	s := c.Subscription
	if s.Status != StatusActive {
		return false
	}
	return s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.After(now)
}

// IsTrialActive reports whether the company has no active subscription and
// its trial ends after now.
func (c *Company) IsTrialActive(now time.Time) bool {
	if c == nil || c.HasActiveSubscription(now) {
		return false
	}
	return c.TrialEndsAt != nil && c.TrialEndsAt.After(now)
}

// Override returns the manual monthly limit and whether one applies.
func (c *Company) Override() (int64, bool) {
	if c == nil || c.MonthlyTokenLimit == nil || *c.MonthlyTokenLimit <= 0 {
		return 0, false
	}
	return *c.MonthlyTokenLimit, true
}
