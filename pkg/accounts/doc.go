// Package accounts reads the company, subscription and plan records that
// govern quota decisions.
//
// The records are owned by an external system; this package only reads them.
// Two directories are provided:
//
//   - MemoryDirectory, seeded from configuration, for tests and single-tenant
//     deployments
//   - PostgresDirectory, which reads the billing tables through pgx
//
// Example:
//
//	dir, err := accounts.NewMemoryDirectory(cfg.Accounts)
//	if err != nil {
//	    return err
//	}
//	company, err := dir.GetCompany(ctx, "acme")
package accounts
