// Package collector samples the live set on a timer and publishes the
// snapshots that back /api/state and its event stream.
package collector

import (
	"context"

	"github.com/grovetools/lombridge/internal/daemon/store"
)

// Collector produces store updates until its context ends. The engine
// restarts a Collector whose Run returns an error.
type Collector interface {
	// Name tags the updates and log lines of this collector.
	Name() string

	// Run samples until ctx is done. It may read st for the last published
	// state and sends each new snapshot on updates.
	Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error
}
