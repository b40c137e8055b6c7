package accounts

import (
	"testing"
	"time"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(v int64) *int64 { return &v }

func TestCompany_AccessState(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	future := ptrTime(now.Add(72 * time.Hour))
	past := ptrTime(now.Add(-time.Hour))

	tests := []struct {
		name      string
		company   *Company
		wantSub   bool
		wantTrial bool
	}{
		{"nil company", nil, false, false},
		{"no subscription no trial", &Company{ID: "a"}, false, false},
		{"active open-ended", &Company{Subscription: &Subscription{Status: StatusActive}}, true, false},
		{"active future period", &Company{Subscription: &Subscription{Status: StatusActive, CurrentPeriodEnd: future}}, true, false},
		{"active lapsed period", &Company{Subscription: &Subscription{Status: StatusActive, CurrentPeriodEnd: past}}, false, false},
		{"canceled", &Company{Subscription: &Subscription{Status: "CANCELED"}}, false, false},
		{"trial future", &Company{TrialEndsAt: future}, false, true},
		{"trial past", &Company{TrialEndsAt: past}, false, false},
		{"trial hidden by subscription", &Company{TrialEndsAt: future, Subscription: &Subscription{Status: StatusActive}}, true, false},
		{"past due with trial", &Company{TrialEndsAt: future, Subscription: &Subscription{Status: "PAST_DUE"}}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.company.HasActiveSubscription(now); got != tt.wantSub {
				t.Errorf("HasActiveSubscription: expected %v, got %v", tt.wantSub, got)
			}
			if got := tt.company.IsTrialActive(now); got != tt.wantTrial {
				t.Errorf("IsTrialActive: expected %v, got %v", tt.wantTrial, got)
			}
		})
	}
}

func TestCompany_Override(t *testing.T) {
	tests := []struct {
		name   string
		limit  *int64
		want   int64
		wantOK bool
	}{
		{"unset", nil, 0, false},
		{"zero ignored", ptrInt(0), 0, false},
		{"negative ignored", ptrInt(-1), 0, false},
		{"positive", ptrInt(5000), 5000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := (&Company{MonthlyTokenLimit: tt.limit}).Override()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func TestPlan_Unlimited(t *testing.T) {
	if (&Plan{MaxTokensMonth: 1000}).Unlimited() {
		t.Error("expected bounded plan")
	}
	if !(&Plan{MaxTokensMonth: UnlimitedTokens}).Unlimited() {
		t.Error("expected unlimited plan")
	}
	var p *Plan
	if p.Unlimited() {
		t.Error("expected nil plan to be bounded")
	}
}
