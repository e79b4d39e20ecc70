// Package logging provides structured logging for jarvis.
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry)
//   - Context field injection (trace_id, request.id, family.id)
//   - Secret redaction for provider keys and bearer tokens
//   - Level-aware sampling (errors never sampled)
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithRequestID(ctx, "3f1c...")
//	ctx = logging.WithFamilyID(ctx, "fam_42")
//	logger.Info(ctx, "command interpreted", zap.String("action", "transaction"))
//
// Raw model output and user payloads are only ever logged at debug level
// and through Truncated, so they never reach info-level sinks in full.
package logging
