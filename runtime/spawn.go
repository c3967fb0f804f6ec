package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/wudi/heyrt/continuation"
	"github.com/wudi/heyrt/values"
)

// backgroundPool tracks the continuations a Runtime is driving
// alongside whatever the caller is doing through Run/Send (spec.md
// §4.7 `spawn_background`), keyed by a monotonic id.
//
// Grounded on this package's own prior GoroutineManager (a
// map[int64]*Value of running tasks guarded by a mutex, launched with
// a recover()-guarded goroutine) generalized from a fire-and-forget
// PHP goroutine launcher to a pool of background Continuations each
// driven to completion against the owning Runtime's Context.
type backgroundPool struct {
	mu      sync.Mutex
	nextID  int64
	running map[int64]backgroundTask
}

type backgroundTask struct {
	done  bool
	value values.Value
	err   error
}

func newBackgroundPool() *backgroundPool {
	return &backgroundPool{running: make(map[int64]backgroundTask)}
}

// spawn registers cont under a new id and launches a goroutine that
// drives it to completion by repeatedly acquiring r's context lock,
// exactly as Run does, except the caller does not block on it.
func (p *backgroundPool) spawn(r *Runtime, cont continuation.Continuation[Context]) int64 {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.running[id] = backgroundTask{}
	p.mu.Unlock()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				p.finish(id, values.Nil, fmt.Errorf("heyrt: background task %d panicked: %v", id, rec))
			}
		}()
		v := r.Run(cont)
		p.finish(id, v, nil)
	}()

	return id
}

func (p *backgroundPool) finish(id int64, v values.Value, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running[id] = backgroundTask{done: true, value: v, err: err}
}

// Poll reports whether the background task named by id has completed,
// and its result if so. A caller not interested in the result may
// safely never call this — spawn_background is explicitly
// fire-and-forget (spec.md §4.7).
func (r *Runtime) Poll(id int64) (value values.Value, err error, done bool) {
	r.background.mu.Lock()
	defer r.background.mu.Unlock()
	t, ok := r.background.running[id]
	if !ok {
		return values.Nil, fmt.Errorf("heyrt: unknown background task %d", id), false
	}
	return t.value, t.err, t.done
}

// Live reports how many background tasks have not yet completed, for
// diagnostics and graceful-shutdown waiting.
func (r *Runtime) Live() int {
	r.background.mu.Lock()
	defer r.background.mu.Unlock()
	n := 0
	for _, t := range r.background.running {
		if !t.done {
			n++
		}
	}
	return n
}

// backgroundContext is a convenience constructor for background work
// that itself bridges a host async task (e.g. a stream read) into a
// Continuation, combining continuation.Future with this package's
// Context type so callers of SpawnBackground don't need to repeat the
// type argument.
func backgroundContext(ctx context.Context, run func(context.Context) values.Value) continuation.Continuation[Context] {
	return continuation.Future[Context](ctx, run)
}
