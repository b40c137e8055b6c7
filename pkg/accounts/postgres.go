package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryRower is the subset of *pgxpool.Pool used by PostgresDirectory.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// The billing tables are owned by the account service. A company has at
// most one current subscription.
const companyQuery = `
SELECT c.id, c.trial_ends_at, c.trial_used, c.monthly_token_limit,
       s.status, s.current_period_end,
       p.name, p.max_tokens_month, p.is_trial
FROM companies c
LEFT JOIN subscriptions s ON s.company_id = c.id
LEFT JOIN plans p ON p.id = s.plan_id
WHERE c.id = $1
ORDER BY s.current_period_end DESC NULLS FIRST
LIMIT 1`

const trialPlanQuery = `
SELECT name, max_tokens_month, is_trial
FROM plans
WHERE is_trial
ORDER BY name
LIMIT 1`

// PostgresDirectory reads companies and plans from PostgreSQL.
type PostgresDirectory struct {
	db queryRower
}

// NewPostgresDirectory creates a directory on an existing pool. The caller
// owns the pool.
func NewPostgresDirectory(pool *pgxpool.Pool) (*PostgresDirectory, error) {
	if pool == nil {
		return nil, errors.New("postgres pool cannot be nil")
	}
	return &PostgresDirectory{db: pool}, nil
}

// GetCompany loads the company joined with its subscription and plan.
func (d *PostgresDirectory) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	var (
		c          Company
		status     *string
		periodEnd  *time.Time
		planName   *string
		planTokens *int64
		planTrial  *bool
	)

	err := d.db.QueryRow(ctx, companyQuery, companyID).Scan(
		&c.ID, &c.TrialEndsAt, &c.TrialUsed, &c.MonthlyTokenLimit,
		&status, &periodEnd,
		&planName, &planTokens, &planTrial,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company %s: %w", companyID, err)
	}

	if status != nil {
		c.Subscription = &Subscription{Status: *status, CurrentPeriodEnd: periodEnd}
		if planName != nil {
			p := &Plan{Name: *planName}
			if planTokens != nil {
				p.MaxTokensMonth = *planTokens
			}
			if planTrial != nil {
				p.IsTrial = *planTrial
			}
			c.Subscription.Plan = p
		}
	}

	return &c, nil
}

// GetTrialPlan returns the plan flagged is_trial, or nil.
func (d *PostgresDirectory) GetTrialPlan(ctx context.Context) (*Plan, error) {
	var p Plan
	err := d.db.QueryRow(ctx, trialPlanQuery).Scan(&p.Name, &p.MaxTokensMonth, &p.IsTrial)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trial plan: %w", err)
	}
	return &p, nil
}
