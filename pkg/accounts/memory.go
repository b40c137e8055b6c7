package accounts

import (
	"context"
	"fmt"
	"sync"

	"mercator-hq/converse/pkg/config"
)

// MemoryDirectory serves companies and plans held in process memory.
type MemoryDirectory struct {
	mu        sync.RWMutex
	companies map[string]*Company
	trialPlan *Plan
}

// NewMemoryDirectory builds a directory from the accounts configuration.
// Plans referenced by subscriptions must be declared in cfg.Plans.
func NewMemoryDirectory(cfg config.AccountsConfig) (*MemoryDirectory, error) {
	d := &MemoryDirectory{companies: make(map[string]*Company)}
	if err := d.Load(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// Load replaces the directory contents with cfg.
func (d *MemoryDirectory) Load(cfg config.AccountsConfig) error {
	plans := make(map[string]*Plan, len(cfg.Plans))
	var trial *Plan
	for _, pc := range cfg.Plans {
		p := &Plan{Name: pc.Name, MaxTokensMonth: pc.MaxTokensMonth, IsTrial: pc.IsTrial}
		plans[pc.Name] = p
		if p.IsTrial && trial == nil {
			trial = p
		}
	}

	companies := make(map[string]*Company, len(cfg.Companies))
	for _, cc := range cfg.Companies {
		c := &Company{
			ID:                cc.ID,
			TrialEndsAt:       cc.TrialEndsAt,
			TrialUsed:         cc.TrialUsed,
			MonthlyTokenLimit: cc.MonthlyTokenLimit,
		}
		if sc := cc.Subscription; sc != nil {
			c.Subscription = &Subscription{Status: sc.Status, CurrentPeriodEnd: sc.CurrentPeriodEnd}
			if sc.Plan != "" {
				p, ok := plans[sc.Plan]
				if !ok {
					return fmt.Errorf("company %q references unknown plan %q", cc.ID, sc.Plan)
				}
				c.Subscription.Plan = p
			}
		}
		companies[cc.ID] = c
	}

	d.mu.Lock()
	d.companies = companies
	d.trialPlan = trial
	d.mu.Unlock()
	return nil
}

// Put adds or replaces a company.
func (d *MemoryDirectory) Put(c *Company) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.companies[c.ID] = cloneCompany(c)
}

// SetTrialPlan replaces the trial tier; nil clears it.
func (d *MemoryDirectory) SetTrialPlan(p *Plan) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p == nil {
		d.trialPlan = nil
		return
	}
	cp := *p
	d.trialPlan = &cp
}

// GetCompany returns a copy of the company.
func (d *MemoryDirectory) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.companies[companyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}
	return cloneCompany(c), nil
}

// GetTrialPlan returns a copy of the trial tier, or nil.
func (d *MemoryDirectory) GetTrialPlan(ctx context.Context) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.trialPlan == nil {
		return nil, nil
	}
	cp := *d.trialPlan
	return &cp, nil
}

func cloneCompany(c *Company) *Company {
	out := *c
	if c.Subscription != nil {
		sub := *c.Subscription
		if sub.Plan != nil {
			plan := *sub.Plan
			sub.Plan = &plan
		}
		out.Subscription = &sub
	}
	return &out
}
