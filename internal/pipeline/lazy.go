package pipeline

import "sync"

// Builder constructs a renderer on first use.
type Builder func() (*Renderer, error)

// Lazy defers renderer construction until the first render request, so the
// service can report healthy before engine backends are reachable. A build
// error is sticky and returned to every caller.
type Lazy struct {
	build    Builder
	once     sync.Once
	renderer *Renderer
	err      error
}

// NewLazy wraps a builder.
func NewLazy(build Builder) *Lazy {
	return &Lazy{
		build:    build,
		once:     sync.Once{},
		renderer: nil,
		err:      nil,
	}
}

// Get returns the renderer, building it exactly once across all callers.
func (l *Lazy) Get() (*Renderer, error) {
	l.once.Do(func() {
		l.renderer, l.err = l.build()
	})

	return l.renderer, l.err
}
