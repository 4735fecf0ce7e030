/*
Package resilience provides a circuit breaker for calls to a remote server.

The breaker is closed while calls succeed. After ReadyToTrip approves a run
of failures it opens and fails calls fast with ErrCircuitOpen. Once Timeout
passes it lets MaxRequests probes through (half-open); if they all succeed it
closes again, and any failure reopens it.

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                        ^                    |
	                        +-----[failure]------+

Usage:

	b := resilience.New("ipc-api", resilience.Settings{
		Timeout: 10 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, client.ErrRejected)
		},
	})
	state, err := resilience.Do(b, func() (sim.State, error) {
		return c.fetchState(ctx)
	})
*/
package resilience
