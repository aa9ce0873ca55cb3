// Package engine runs the host's status collectors and folds their updates
// into the store.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/lombridge/internal/daemon/collector"
	"github.com/grovetools/lombridge/internal/daemon/store"
)

const (
	defaultRestartDelay = time.Second
	maxRestartDelay     = 30 * time.Second
)

// Engine supervises collectors. A collector that returns an error is
// restarted with a doubling delay until the context ends.
type Engine struct {
	store        *store.Store
	collectors   []collector.Collector
	logger       *logrus.Entry
	restartDelay time.Duration
}

// New creates an Engine that writes into st.
func New(st *store.Store, logger *logrus.Entry) *Engine {
	return &Engine{
		store:        st,
		logger:       logger,
		restartDelay: defaultRestartDelay,
	}
}

// Register adds a collector. Call before Start.
func (e *Engine) Register(c collector.Collector) {
	e.collectors = append(e.collectors, c)
}

// Start runs every collector and blocks until ctx is canceled.
func (e *Engine) Start(ctx context.Context) {
	updates := make(chan store.Update, 100)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updates:
				e.store.ApplyUpdate(u)
			}
		}
	}()

	for _, c := range e.collectors {
		wg.Add(1)
		go func(col collector.Collector) {
			defer wg.Done()
			e.supervise(ctx, col, updates)
		}(c)
	}

	wg.Wait()
}

func (e *Engine) supervise(ctx context.Context, col collector.Collector, updates chan<- store.Update) {
	log := e.logger.WithField("collector", col.Name())
	delay := e.restartDelay
	for {
		log.Debug("Starting collector")
		err := col.Run(ctx, e.store, updates)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			log.Debug("Collector finished")
			return
		}

		log.WithError(err).WithField("retry_in", delay).Error("Collector failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRestartDelay {
			delay = maxRestartDelay
		}
	}
}
