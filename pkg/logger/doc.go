// Package logger provides a slog.Logger factory with environment presets and
// typed attribute helpers used across the analytics engine.
//
// The factory defaults to production-safe settings (JSON output, info level).
// Batch commands typically construct one logger at startup and pass it down
// through the calculators:
//
//	log := logger.New(logger.WithProduction("revenuekit"))
//	log.Info("snapshot stored", logger.TenantID(tenantID))
package logger
