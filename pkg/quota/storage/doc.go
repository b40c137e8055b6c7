// Package storage persists per-company monthly token counters.
//
// Every backend implements Increment as a single atomic upsert at the
// storage layer: the row for (company, month) is created on first use and
// both counters are added in the same statement. Application code never
// reads a counter, adds to it and writes it back.
//
// Backends:
//
//   - MemoryBackend: mutex-guarded map, for tests and single-process use
//   - SQLiteBackend: INSERT .. ON CONFLICT DO UPDATE .. RETURNING, with
//     either the pure-Go "sqlite" driver or the cgo "sqlite3" driver
//   - PostgresBackend: the same upsert through a pgx pool
//   - DynamoDBBackend: UpdateItem with an ADD expression
package storage
