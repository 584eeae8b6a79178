// Package logger provides the structured logging interface used across hermes.
//
// It wraps zerolog behind the Logger interface so components can be handed a
// logger (or a TestLogger in tests) instead of reaching for a global:
//
//	log := logger.WithComponent("gateway")
//	log.InfoWithFields("request completed", map[string]interface{}{
//	    "endpoint": endpoint,
//	    "status":   200,
//	})
//
// Console output is colorized; when logging.file is set the same events are
// also appended to that file as JSON lines.
package logger
