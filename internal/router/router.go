package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"firestige.xyz/router/internal/arptable"
	"firestige.xyz/router/internal/log"
)

// Router runs the two forwarding directions between ports a and b over one
// shared ARP table.
type Router struct {
	a, b    *Port
	table   arptable.Table
	engines [2]*Engine
	logger  log.Logger
}

// New creates a router. Engine 0 forwards a->b, engine 1 forwards b->a.
func New(a, b *Port, table arptable.Table, opts ...Option) (*Router, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.New("arp table is nil")
	}

	o := buildOptions(opts)
	return &Router{
		a:      a,
		b:      b,
		table:  table,
		logger: o.logger,
		engines: [2]*Engine{
			newEngine(a, b, table, o),
			newEngine(b, a, table, o),
		},
	}, nil
}

// Engines returns the a->b and b->a engines.
func (r *Router) Engines() [2]*Engine {
	return r.engines
}

// Run starts both engines and blocks until both have returned. When one
// engine fails the other is stopped too. Both transports are closed before
// Run returns. The first engine error is returned; a cancelled ctx with no
// engine error returns nil.
func (r *Router) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.WithFields(map[string]interface{}{
		"a": fmt.Sprintf("%s(%s)", r.a.Name, r.a.HardwareAddr),
		"b": fmt.Sprintf("%s(%s)", r.b.Name, r.b.HardwareAddr),
	}).Info("router started")

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, e := range r.engines {
		wg.Add(1)
		go func(e *Engine) {
			defer wg.Done()
			if err := e.Run(ctx); err != nil {
				once.Do(func() { firstErr = err })
				r.logger.WithError(err).Error("engine failed")
				cancel()
			}
		}(e)
	}
	wg.Wait()

	closeErr := r.close()
	for _, e := range r.engines {
		s := e.Stats()
		r.logger.WithFields(map[string]interface{}{
			"direction": e.Direction(),
			"received":  s.Received,
			"forwarded": s.Forwarded,
			"learned":   s.ARPLearned,
			"arp_sent":  s.ARPRequestsSent,
			"dropped":   s.Dropped(),
		}).Info("engine statistics")
	}
	r.logger.Info("router stopped")

	if firstErr != nil {
		return firstErr
	}
	return closeErr
}

func (r *Router) close() error {
	var errs []error
	for _, p := range []*Port{r.a, r.b} {
		if err := p.Transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.Name, err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
