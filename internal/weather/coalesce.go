package weather

import "sync"

// flightGroup deduplicates concurrent upstream fetches for the same cache
// key: the scheduler and an interactive handler asking for the same
// coordinates inside one TTL window share a single upstream call.
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

type flightCall struct {
	wg  sync.WaitGroup
	val any
	ok  bool
}

func newFlightGroup() *flightGroup {
	return &flightGroup{calls: make(map[string]*flightCall)}
}

// do runs fn for key, or waits for an identical in-flight call and returns
// its result. Results are not cached here; that is the response cache's job.
func (g *flightGroup) do(key string, fn func() (any, bool)) (any, bool) {
	g.mu.Lock()
	if c, exists := g.calls[key]; exists {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.ok
	}

	c := &flightCall{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.ok = fn()
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	return c.val, c.ok
}
