// Package batch runs a list of host actions in order, reporting each outcome
// without stopping at the first failure.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/lombridge/config"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/logging"
)

// Sender issues one command to the host.
type Sender interface {
	SendCommand(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error)
}

// Action is one step of a batch.
type Action struct {
	Command string                 `yaml:"command" json:"command" toml:"command"`
	Params  map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty" toml:"params,omitempty"`
}

// Outcome is the result of one action.
type Outcome struct {
	Index   int
	Total   int
	Command string
	Result  interface{}
	Err     error
	// Verification holds the suffix added after a device load check.
	Verification string
}

// OK reports whether the action succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Line renders the outcome as "[i/n] cmd : result".
func (o Outcome) Line() string {
	prefix := fmt.Sprintf("[%d/%d] %s", o.Index, o.Total, o.Command)
	if o.Err != nil {
		return fmt.Sprintf("%s ERROR : %s", prefix, errors.Describe(o.Err))
	}
	line := fmt.Sprintf("%s : %v", prefix, o.Result)
	if o.Verification != "" {
		line += " " + o.Verification
	}
	return line
}

// Report collects the outcomes of a batch.
type Report struct {
	Outcomes []Outcome
}

// Succeeded returns the number of successful actions.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed actions.
func (r *Report) Failed() int { return len(r.Outcomes) - r.Succeeded() }

// Lines returns one line per outcome.
func (r *Report) Lines() []string {
	lines := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		lines[i] = o.Line()
	}
	return lines
}

// Tally summarizes the report.
func (r *Report) Tally() string {
	return fmt.Sprintf("%d succeeded, %d failed", r.Succeeded(), r.Failed())
}

func (r *Report) String() string {
	return strings.Join(append(r.Lines(), r.Tally()), "\n")
}

// Executor runs batches against a Sender.
type Executor struct {
	sender         Sender
	verifyTimeout  time.Duration
	verifyInterval time.Duration
	logger         *logrus.Entry
}

// New creates an Executor. Zero verify settings fall back to the config defaults.
func New(sender Sender, cfg config.BatchConfig) *Executor {
	defaults := config.Default().Batch
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = defaults.VerifyTimeout
	}
	if cfg.VerifyInterval <= 0 {
		cfg.VerifyInterval = defaults.VerifyInterval
	}
	return &Executor{
		sender:         sender,
		verifyTimeout:  cfg.VerifyTimeout.Std(),
		verifyInterval: cfg.VerifyInterval.Std(),
		logger:         logging.NewLogger("batch"),
	}
}

// Run executes actions in order. A failed action is recorded and the batch
// moves on.
func (e *Executor) Run(ctx context.Context, actions []Action) *Report {
	report := &Report{Outcomes: make([]Outcome, 0, len(actions))}
	for i, action := range actions {
		command := action.Command
		if command == "load_instrument" {
			command = "load_device"
		}
		outcome := Outcome{Index: i + 1, Total: len(actions), Command: command}
		params := action.Params
		if params == nil {
			params = map[string]interface{}{}
		}

		outcome.Result, outcome.Verification, outcome.Err = e.run(ctx, command, params)
		log := e.logger.WithFields(logrus.Fields{"index": outcome.Index, "command": command})
		if outcome.Err != nil {
			log.WithError(outcome.Err).Warn("Batch action failed")
		} else {
			log.Debug("Batch action completed")
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report
}

func (e *Executor) run(ctx context.Context, command string, p map[string]interface{}) (interface{}, string, error) {
	switch command {
	case "create_clip":
		var args struct {
			TrackIndex *int    `mapstructure:"track_index"`
			ClipIndex  *int    `mapstructure:"clip_index"`
			Length     float64 `mapstructure:"length"`
		}
		args.Length = 4
		if err := decode(p, &args); err != nil {
			return nil, "", err
		}
		if args.TrackIndex == nil || args.ClipIndex == nil {
			return nil, "", errors.InvalidInput("params", "track_index and clip_index are required")
		}
		path := fmt.Sprintf("song.tracks[%d].clip_slots[%d].create_clip", *args.TrackIndex, *args.ClipIndex)
		res, err := e.access(ctx, "call", path, args.Length)
		return res, "", err

	case "set_tempo":
		var args struct {
			Tempo float64 `mapstructure:"tempo"`
		}
		args.Tempo = 120
		if err := decode(p, &args); err != nil {
			return nil, "", err
		}
		res, err := e.access(ctx, "set", "song.tempo", args.Tempo)
		return res, "", err

	case "rename_track":
		var args struct {
			TrackIndex *int   `mapstructure:"track_index"`
			Name       string `mapstructure:"name"`
		}
		args.Name = "Track"
		if err := decode(p, &args); err != nil {
			return nil, "", err
		}
		if args.TrackIndex == nil {
			return nil, "", errors.InvalidInput("track_index", "required")
		}
		res, err := e.access(ctx, "set", fmt.Sprintf("song.tracks[%d].name", *args.TrackIndex), args.Name)
		return res, "", err

	case "load_device":
		return e.loadDevice(ctx, p)

	case "add_midi_notes", "clear_midi_notes", "delete_device", "universal_accessor":
		res, err := e.sender.SendCommand(ctx, command, p)
		return res, "", err

	case "raw":
		var args struct {
			Type   string                 `mapstructure:"type"`
			Params map[string]interface{} `mapstructure:"params"`
		}
		if err := decode(p, &args); err != nil {
			return nil, "", err
		}
		if args.Type == "" {
			return nil, "", errors.InvalidInput("type", "required")
		}
		res, err := e.sender.SendCommand(ctx, args.Type, args.Params)
		return res, "", err
	}
	return nil, "", errors.New(errors.ErrCodeUnknownCommand,
		fmt.Sprintf("command ignored: %s is not supported in a batch", command)).
		WithDetail("command", command)
}

func (e *Executor) access(ctx context.Context, action, path string, value interface{}) (interface{}, error) {
	return e.sender.SendCommand(ctx, "universal_accessor", map[string]interface{}{
		"action": action,
		"path":   path,
		"value":  value,
	})
}

// loadDevice sends load_device and, when the host reports a load, polls
// the track's device list until it grows or verifyTimeout passes.
func (e *Executor) loadDevice(ctx context.Context, p map[string]interface{}) (interface{}, string, error) {
	var args struct {
		TrackIndex *int `mapstructure:"track_index"`
	}
	if err := decode(p, &args); err != nil {
		return nil, "", err
	}
	if args.TrackIndex == nil {
		return nil, "", errors.InvalidInput("track_index", "required")
	}
	devicesPath := fmt.Sprintf("song.tracks[%d].devices", *args.TrackIndex)

	before, err := e.deviceCount(ctx, devicesPath)
	if err != nil {
		return nil, "", err
	}

	res, err := e.sender.SendCommand(ctx, "load_device", p)
	if err != nil {
		return nil, "", err
	}
	if !strings.Contains(fmt.Sprint(res), "Loaded") {
		return res, "", nil
	}

	deadline := time.Now().Add(e.verifyTimeout)
	for {
		now, err := e.deviceCount(ctx, devicesPath)
		if err == nil && now > before {
			return res, "[verified]", nil
		}
		if time.Now().Add(e.verifyInterval).After(deadline) {
			return res, "[verification timed out]", nil
		}
		select {
		case <-ctx.Done():
			return res, "[verification interrupted]", nil
		case <-time.After(e.verifyInterval):
		}
	}
}

func (e *Executor) deviceCount(ctx context.Context, path string) (int, error) {
	res, err := e.access(ctx, "get", path, nil)
	if err != nil {
		return 0, err
	}
	if list, ok := res.([]interface{}); ok {
		return len(list), nil
	}
	return 0, nil
}

func decode(params map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot build params decoder")
	}
	if err := dec.Decode(params); err != nil {
		return errors.InvalidInput("params", err.Error())
	}
	return nil
}
