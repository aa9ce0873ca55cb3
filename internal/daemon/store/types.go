// Package store provides the in-memory status store for the lombridge host.
package store

import (
	"time"

	"github.com/grovetools/lombridge/internal/liveset"
)

// State is the host's externally visible status.
type State struct {
	Session     liveset.Info `json:"session"`
	Connections int          `json:"connections"`
	Commands    uint64       `json:"commands"`
	LastCommand string       `json:"last_command,omitempty"`
	ConfigFile  string       `json:"config_file,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateSession      UpdateType = "session"
	UpdateConnection   UpdateType = "connection"
	UpdateCommand      UpdateType = "command"
	UpdateConfigReload UpdateType = "config_reload"
)

// Update represents a change to the state.
type Update struct {
	Type    UpdateType  `json:"update_type"`
	Source  string      `json:"source,omitempty"` // Which component sent this update (e.g. "session", "tcp", "ws", "config")
	Payload interface{} `json:"payload,omitempty"`
}
