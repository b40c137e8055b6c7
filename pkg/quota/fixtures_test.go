package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/converse/pkg/accounts"
	"mercator-hq/converse/pkg/config"
	"mercator-hq/converse/pkg/quota/storage"
	"mercator-hq/converse/pkg/telemetry/logging"
)

// fakeClock is a settable time source shared by the components under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingBackend counts Get calls and can be told to fail.
type countingBackend struct {
	storage.Backend
	gets          atomic.Int64
	failGet       error
	failIncrement error
}

func (b *countingBackend) Get(ctx context.Context, companyID string, month time.Time) (*storage.UsageRecord, error) {
	b.gets.Add(1)
	if b.failGet != nil {
		return nil, b.failGet
	}
	return b.Backend.Get(ctx, companyID, month)
}

func (b *countingBackend) Increment(ctx context.Context, companyID string, month time.Time, in, out int64) (*storage.UsageRecord, error) {
	if b.failIncrement != nil {
		return nil, b.failIncrement
	}
	return b.Backend.Increment(ctx, companyID, month, in, out)
}

// failingDirectory returns err for every lookup.
type failingDirectory struct{ err error }

func (d failingDirectory) GetCompany(context.Context, string) (*accounts.Company, error) {
	return nil, d.err
}

func (d failingDirectory) GetTrialPlan(context.Context) (*accounts.Plan, error) {
	return nil, d.err
}

var errBoom = errors.New("boom")

type fixture struct {
	clock    *fakeClock
	dir      *accounts.MemoryDirectory
	backend  *countingBackend
	resolver *Resolver
	ledger   *Ledger
}

func newFixture(policy Policy) *fixture {
	clock := newFakeClock()
	dir, _ := accounts.NewMemoryDirectory(config.AccountsConfig{})
	backend := &countingBackend{Backend: storage.NewMemoryBackend()}

	cache := NewCache()
	cache.now = clock.Now

	resolver, _ := NewResolver(ResolverConfig{
		Directory: dir,
		Backend:   backend,
		Cache:     cache,
		Policy:    policy,
		Logger:    logging.Discard(),
	})
	resolver.now = clock.Now

	ledger, _ := NewLedger(resolver, logging.Discard())
	ledger.now = clock.Now

	return &fixture{clock: clock, dir: dir, backend: backend, resolver: resolver, ledger: ledger}
}

func (f *fixture) subscribed(id string, maxTokens int64) {
	f.dir.Put(&accounts.Company{
		ID: id,
		Subscription: &accounts.Subscription{
			Status: accounts.StatusActive,
			Plan:   &accounts.Plan{Name: "plan", MaxTokensMonth: maxTokens},
		},
	})
}

func (f *fixture) trial(id string, endsIn time.Duration) {
	end := f.clock.Now().Add(endsIn)
	f.dir.Put(&accounts.Company{ID: id, TrialEndsAt: &end})
}

func (f *fixture) seedUsage(id string, tokens int64) {
	if _, err := f.backend.Backend.Increment(context.Background(), id, f.clock.Now(), tokens, 0); err != nil {
		panic(err)
	}
}

func int64Ptr(v int64) *int64 { return &v }
