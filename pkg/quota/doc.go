// Package quota decides whether a company may receive automated replies and
// records the tokens those replies consume.
//
// # Components
//
//   - Cache: an injected, TTL-bounded cache of current-month usage per
//     company, with explicit invalidation
//   - Resolver: combines subscription, trial and override state with cached
//     usage into a Decision
//   - Ledger: atomically increments usage, invalidates the cache and reports
//     whether the increment crossed the limit
//   - Sweeper: a cron job that drops expired cache entries
//
// # Failure Policy
//
// Resolution fails closed: any error while resolving yields a blocked
// Decision with UpgradeRequired set. Registration fails open: a storage
// error is reported through RegistrationResult.Registered and never
// returned to the caller.
//
// # Access Precedence
//
// An ACTIVE subscription whose period has not ended grants access. Without
// one, a trial ending in the future grants access. Otherwise the company is
// blocked before usage is read.
//
// # Limit Precedence
//
// A positive per-company override wins. A subscribed company then uses its
// plan limit, where -1 means unlimited. A trial company uses the plan flagged
// as the trial tier, or Policy.DefaultTrialLimit when none is flagged.
//
// Example:
//
//	cache := quota.NewCache()
//	resolver, _ := quota.NewResolver(quota.ResolverConfig{
//	    Directory: dir,
//	    Backend:   backend,
//	    Cache:     cache,
//	})
//	decision := resolver.CheckTokenLimit(ctx, "acme")
//	if decision.LimitReached {
//	    // substitute the fixed "cannot respond" reply
//	}
package quota
