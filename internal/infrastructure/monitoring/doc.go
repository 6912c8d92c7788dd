/*
Package monitoring provides Prometheus metrics for turbosocket.

# Overview

Each Metrics value owns its own prometheus.Registry, so several servers (or
tests) can live in one process without duplicate-registration panics.

# Features

- HTTP request metrics (latency, status)
- Lifecycle transitions per component
- Pipeline stage throughput and latency
- Queue depth and items dropped at shutdown
- Active managed threads and client connections
- Process uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	guard := lifecycle.New(lifecycle.WithObserver(metrics.LifecycleObserver("pipeline")))

	timer := monitoring.NewTimer(metrics, "executor")
	reply := exec.Execute(ctx, cmd)
	timer.Stop()
*/
package monitoring
