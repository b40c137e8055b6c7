package quota

import (
	"fmt"
	"time"

	"mercator-hq/converse/pkg/accounts"
	"mercator-hq/converse/pkg/quota/storage"
)

// Unlimited is the MonthlyLimit and RemainingTokens value of a company with
// no monthly ceiling.
const Unlimited = accounts.UnlimitedTokens

// Policy defaults.
const (
	DefaultCacheTTL                  = 60 * time.Second
	DefaultTrialLimit                = 100000
	DefaultWarnThreshold             = 0.8
	DefaultRegistrationWarnThreshold = 0.9
)

// Reason identifies which rule produced a Decision.
type Reason string

const (
	ReasonSubscription Reason = "subscription"
	ReasonTrial        Reason = "trial"
	ReasonOverride     Reason = "override"
	ReasonExpired      Reason = "expired"
	ReasonError        Reason = "error"
)

// Messages shown to the account owner.
const (
	MessageExpired     = "Seu período de teste terminou e não há assinatura ativa. Assine um plano para continuar usando o atendimento automático."
	MessageLimit       = "O limite mensal de tokens foi atingido. Faça upgrade do plano para continuar usando o atendimento automático."
	MessageUnavailable = "Não foi possível verificar o limite de uso agora. O atendimento automático está pausado até a verificação ser concluída."
	messageWarnFormat  = "Você já utilizou %.0f%% do limite mensal de tokens."
)

// Policy holds the tunable parameters of quota resolution. It can be
// swapped at runtime with Resolver.SetPolicy.
type Policy struct {
	// CacheTTL bounds how long cached usage is trusted.
	CacheTTL time.Duration

	// DefaultTrialLimit applies to trial companies when no plan is flagged
	// as the trial tier.
	DefaultTrialLimit int64

	// WarnThreshold is the usage fraction at which decisions carry a soft
	// warning.
	WarnThreshold float64

	// RegistrationWarnThreshold is the usage fraction at which registration
	// results carry a warning.
	RegistrationWarnThreshold float64
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		CacheTTL:                  DefaultCacheTTL,
		DefaultTrialLimit:         DefaultTrialLimit,
		WarnThreshold:             DefaultWarnThreshold,
		RegistrationWarnThreshold: DefaultRegistrationWarnThreshold,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.CacheTTL <= 0 {
		p.CacheTTL = d.CacheTTL
	}
	if p.DefaultTrialLimit <= 0 {
		p.DefaultTrialLimit = d.DefaultTrialLimit
	}
	if p.WarnThreshold <= 0 {
		p.WarnThreshold = d.WarnThreshold
	}
	if p.RegistrationWarnThreshold <= 0 {
		p.RegistrationWarnThreshold = d.RegistrationWarnThreshold
	}
	return p
}

// Decision is the outcome of a quota check.
type Decision struct {
	CompanyID string `json:"company_id"`

	// CurrentUsage is input plus output tokens in the current month.
	CurrentUsage int64 `json:"current_usage"`

	// MonthlyLimit is the effective ceiling, or Unlimited.
	MonthlyLimit int64 `json:"monthly_limit"`

	PercentUsed     float64 `json:"percent_used"`
	LimitReached    bool    `json:"limit_reached"`
	RemainingTokens int64   `json:"remaining_tokens"`
	UpgradeRequired bool    `json:"upgrade_required"`
	Message         string  `json:"message,omitempty"`

	Reason Reason `json:"reason"`

	// CheckedAt is when the decision was made. It differs between calls
	// served from the same cached usage; every other field is identical.
	CheckedAt time.Time `json:"checked_at"`
}

// Unlimited reports whether the decision carries no monthly ceiling.
func (d *Decision) Unlimited() bool {
	return d.MonthlyLimit == Unlimited
}

// blockedDecision is the terminal decision used for expired access and for
// resolution errors.
func blockedDecision(companyID string, reason Reason, message string, now time.Time) *Decision {
	return &Decision{
		CompanyID:       companyID,
		MonthlyLimit:    0,
		PercentUsed:     100,
		LimitReached:    true,
		RemainingTokens: 0,
		UpgradeRequired: true,
		Message:         message,
		Reason:          reason,
		CheckedAt:       now,
	}
}

// evaluate applies a limit to the current usage.
func evaluate(companyID string, usage, limit int64, reason Reason, warnAt float64, now time.Time) *Decision {
	d := &Decision{
		CompanyID:    companyID,
		CurrentUsage: usage,
		MonthlyLimit: limit,
		Reason:       reason,
		CheckedAt:    now,
	}

	if limit == Unlimited {
		d.RemainingTokens = Unlimited
		return d
	}

	if limit > 0 {
		d.PercentUsed = float64(usage) * 100 / float64(limit)
	} else {
		d.PercentUsed = 100
	}
	d.LimitReached = usage >= limit
	if !d.LimitReached {
		d.RemainingTokens = limit - usage
	}

	switch {
	case d.LimitReached:
		d.UpgradeRequired = true
		d.Message = MessageLimit
	case d.PercentUsed >= warnAt*100:
		d.Message = warningMessage(d.PercentUsed)
	}
	return d
}

func warningMessage(percent float64) string {
	return fmt.Sprintf(messageWarnFormat, percent)
}

// RegistrationResult reports the outcome of RegisterTokenUsage.
type RegistrationResult struct {
	// ID identifies this registration in logs.
	ID        string
	CompanyID string

	// Registered is false when the increment was rejected or could not be
	// persisted.
	Registered bool

	// LimitReached reports whether usage is at or over the limit after the
	// increment.
	LimitReached bool

	// Warning is set once usage crosses the registration watermark.
	Warning string

	// Usage is the bucket after the increment, nil when not registered.
	Usage *storage.UsageRecord

	// Decision is the quota state re-resolved after the increment.
	Decision *Decision

	// Err explains why Registered is false.
	Err error
}
