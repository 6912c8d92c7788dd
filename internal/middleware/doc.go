// Package middleware provides the HTTP middleware stack of the server.
//
// Middleware stack includes:
//   - CORS: cross-origin access through gin-contrib/cors
//   - RateLimit: per-IP token buckets, idle clients pruned after a few minutes
//   - GlobalRateLimit: one bucket shared by every client, used to cap the
//     rate of new WebSocket sessions server-wide
//   - Gzip: response compression, skipping WebSocket upgrades
//
// RateLimitConfig.Limiter also builds the per-connection command limiter
// used by the pipeline reader, so HTTP and stream clients share one budget
// definition.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.RateLimitConfig{RequestsPerSecond: 100, Burst: 200}))
//	router.GET("/stream", middleware.GlobalRateLimit(perSecond), handleStream)
//	router.Use(middleware.Gzip(gzip.DefaultCompression, "/metrics", "/stream"))
package middleware
