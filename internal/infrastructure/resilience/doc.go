/*
Package resilience provides a circuit breaker for call sites that can fail
repeatedly, such as writes to a peer that has stopped reading.

# States

	Closed --[Threshold failures]--> Open --[Cooldown]--> Half-Open --[Probes successes]--> Closed
	                                   ^                      |
	                                   +------[failure]-------+

While open, Do returns ErrOpen without calling fn. In half-open at most Probes
calls run at once; others get ErrProbeInFlight.

# Usage

	breaker := resilience.New("conn-writes", resilience.Settings{
		Threshold: 5,
		Cooldown:  time.Second,
		Logger:    log,
	})

	err := breaker.Do(func() error {
		return conn.Write(frame)
	})
*/
package resilience
