// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: sampled JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *zap.Logger (usually a named child from Component)
// and default to a no-op logger when none is given, so tests stay quiet.
//
// Example Usage:
//
//	cfg := logging.DefaultConfig()
//	cfg.OutputPaths = []string{"stdout", "/var/log/turbosocket.log"}
//	cfg.Fields = map[string]interface{}{"instance": id.Instance()}
//	logger, err := logging.New(cfg)
//	log := logger.Component("pipeline")
//	log.Info("Thread created", zap.String("thread", "reader"))
package logging
