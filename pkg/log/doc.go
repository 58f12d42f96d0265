// Package log provides the structured logging abstraction shared by all
// rolekeeper components.
//
// Components never talk to a concrete logging library. They accept a
// [Logger] and attach context with [Logger.With]:
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//	svcLog := logger.With(log.String("device", "node-1"))
//	svcLog.Info("registered as singleton candidate")
//
// Use [NewNoopLogger] in tests or when the embedding application does not
// want rolekeeper output.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
