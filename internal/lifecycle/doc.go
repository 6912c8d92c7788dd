/*
Package lifecycle provides a start-once / stop-once guard for service objects.

# Overview

Any object that can be started and stopped by several goroutines at once
composes a Guard. The guard runs the object's start body at most once and its
stop body at most once, and only if the start completed.

# States

	New --Start--> Starting --> Running --Stop--> Stopping --> Done

Done is terminal. An object still in New can be discarded without stopping.

# Usage

	type Cache struct {
		guard *lifecycle.Guard
	}

	func (c *Cache) Start() (bool, error) { return c.guard.Start(c.open) }
	func (c *Cache) Stop() (bool, error)  { return c.guard.Stop(c.flush) }
	func (c *Cache) Close()               { c.guard.Close(c.Stop) }

# Concurrent stops

Exactly one Stop call observes Running and runs the body. A Stop that arrives
while the body is running polls every PollInterval until the state is Done
and returns false. The wait has no timeout.

# Low-level calls

StartBegin/StartEnd and StopBegin/StopEnd are exported for owners that need
to interleave their own locking. They must be the first and last statements
of the owner's Start or Stop.
*/
package lifecycle
