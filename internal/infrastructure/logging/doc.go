// Package logging provides structured logging for HSB core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting gateway", "tcp_port", 18002)
//	mgrLogger := logger.With("component", "manager")
//
// Every entry carries service=hsb and the build version. Components add a
// component attribute with With.
//
// Never log secrets: the MQTT password, InfluxDB token and ASR key are
// configuration values, not log fields.
package logging
