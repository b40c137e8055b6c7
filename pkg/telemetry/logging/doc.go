// Package logging builds the structured logger used across the library.
//
// New returns a standard *slog.Logger whose handler
//
//   - emits JSON or text at the configured level
//   - prepends company, conversation and request identifiers found in the
//     context (see WithCompanyID and friends) to every *Context log call
//   - redacts PII from attribute values when RedactPII is enabled
//
// Customer turn text routinely carries e-mail addresses, phone numbers and
// CPFs, so redaction is on by default.
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	ctx = logging.WithCompanyID(ctx, "acme")
//	logger.WarnContext(ctx, "classification degraded", "error", err)
package logging
