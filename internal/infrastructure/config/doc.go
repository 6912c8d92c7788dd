// Package config provides 12-factor configuration for the turbosocket server.
//
// Values start from Default, are overlaid by an optional YAML or TOML file
// named by TURBOSOCKET_CONFIG, and finally by environment variables. CLI
// flags in cmd/server override the listen addresses.
//
// Configuration Sections:
//   - Server: HTTP and raw TCP listeners, connection cap, shutdown timeout
//   - Pipeline: poll intervals, executor, wire framing, write breaker
//   - Logging: level and output format
//   - RateLimit: per-IP HTTP and per-connection command budgets
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("HTTP on %s, TCP on %s\n", cfg.Server.Addr(), cfg.Server.TCPAddr)
//
// Environment Variables:
//   - PORT, HOST, TCP_ADDR, MAX_CONNS, SHUTDOWN_TIMEOUT, CORS_ORIGINS
//   - PIPELINE_POLL_INTERVAL, PIPELINE_STOP_POLL, PIPELINE_EXECUTOR,
//     PIPELINE_FRAMING, PIPELINE_BREAKER_THRESHOLD, PIPELINE_BREAKER_COOLDOWN
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
