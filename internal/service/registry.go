package service

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/GriffinCanCode/turbosocket/internal/shared/id"
)

// Registry tracks the live systems of a server so they can be listed and
// stopped together
type Registry struct {
	systems sync.Map
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a system
func (r *Registry) Register(sys *System) error {
	if sys == nil || sys.ID() == "" {
		return fmt.Errorf("system ID cannot be empty")
	}
	if _, loaded := r.systems.LoadOrStore(sys.ID(), sys); loaded {
		return fmt.Errorf("system already registered: %s", sys.ID())
	}
	return nil
}

// Unregister removes a system
func (r *Registry) Unregister(systemID id.ConnectionID) {
	r.systems.Delete(systemID)
}

// Get retrieves a system by ID
func (r *Registry) Get(systemID id.ConnectionID) (*System, bool) {
	val, ok := r.systems.Load(systemID)
	if !ok {
		return nil, false
	}
	return val.(*System), true
}

// Count returns the number of registered systems
func (r *Registry) Count() int {
	n := 0
	r.systems.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// List returns a snapshot of every registered system, oldest first
func (r *Registry) List() []Info {
	var infos []Info
	r.systems.Range(func(_, value interface{}) bool {
		infos = append(infos, value.(*System).Info())
		return true
	})

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// StopAll stops every registered system concurrently and removes it
func (r *Registry) StopAll() error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	r.systems.Range(func(key, value interface{}) bool {
		sys := value.(*System)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sys.Stop(); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			r.systems.Delete(key)
		}()
		return true
	})

	wg.Wait()
	return errs
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	var total int
	var read, written, dropped int64
	states := make(map[string]int)

	r.systems.Range(func(_, value interface{}) bool {
		sys := value.(*System)
		stats := sys.Stats()
		total++
		read += stats.Read
		written += stats.Written
		dropped += stats.Dropped
		states[sys.State().String()]++
		return true
	})

	return map[string]interface{}{
		"total_systems": total,
		"read":          read,
		"written":       written,
		"dropped":       dropped,
		"states":        states,
	}
}
