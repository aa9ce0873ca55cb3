package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/grovetools/lombridge/cli"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/pkg/protocol"
)

// NewGetCmd reads an attribute through the accessor.
func NewGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Read an attribute of the object graph",
		Long: `Read an attribute of the object graph. The last path segment names
the attribute.

Examples:
  lombridge get song.tempo
  lombridge get "tracks 0.devices 0.parameters 1.value"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccessor(cmd, "get", args[0], nil)
		},
	}
}

// NewSetCmd writes an attribute through the accessor.
func NewSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Write an attribute of the object graph",
		Long: `Write an attribute of the object graph. The value is parsed as JSON
and sent as a plain string if that fails or the host rejects it.

Examples:
  lombridge set song.tempo 124
  lombridge set "tracks 0.name" Bass
  lombridge set "tracks 0.mixer_device.volume.value" 0.8`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, parsed := parseValue(args[1])
			err := runAccessor(cmd, "set", args[0], value)
			if err != nil && parsed && errors.Is(err, errors.ErrCodeCommandFailed) {
				if _, isString := value.(string); !isString {
					return runAccessor(cmd, "set", args[0], args[1])
				}
			}
			return err
		},
	}
}

// NewCallCmd invokes a method through the accessor.
func NewCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <path> [args...]",
		Short: "Invoke a method of the object graph",
		Long: `Invoke a method of the object graph. Each argument is parsed as JSON
and falls back to a plain string.

Examples:
  lombridge call song.create_midi_track -1
  lombridge call "tracks 0.clip_slots 0.fire"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value interface{}
			if len(args) > 1 {
				callArgs := make([]interface{}, 0, len(args)-1)
				for _, raw := range args[1:] {
					v, _ := parseValue(raw)
					callArgs = append(callArgs, v)
				}
				value = callArgs
			}
			return runAccessor(cmd, "call", args[0], value)
		},
	}
}

// NewSendCmd sends an arbitrary protocol command.
func NewSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <type> [params-json]",
		Short: "Send a raw protocol command",
		Long: `Send a raw protocol command and print its result.

Examples:
  lombridge send get_session_info
  lombridge send set_tempo '{"tempo": 128}'
  lombridge send create_clip '{"track_index": 0, "clip_index": 0, "length": 8}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{}
			if len(args) == 2 {
				v, err := decodeJSON(args[1])
				if err != nil {
					return errors.InvalidInput("params", err.Error())
				}
				obj, ok := v.(map[string]interface{})
				if !ok {
					return errors.InvalidInput("params", "must be a JSON object")
				}
				params = obj
			}
			return send(cmd, args[0], params)
		},
	}
}

// NewSessionCmd prints the session summary.
func NewSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the session summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, "get_session_info", nil)
		},
	}
}

func runAccessor(cmd *cobra.Command, action, path string, value interface{}) error {
	params := map[string]interface{}{
		"action": action,
		"path":   path,
	}
	if value != nil {
		params["value"] = value
	}
	return send(cmd, "universal_accessor", params)
}

func send(cmd *cobra.Command, commandType string, params map[string]interface{}) error {
	mgr, _, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := mgr.SendCommand(ctx, commandType, params)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), result, cli.GetOptions(cmd).JSONOutput)
}

// printResult writes strings bare and everything else as JSON.
func printResult(w io.Writer, result interface{}, asJSON bool) error {
	if s, ok := result.(string); ok && !asJSON {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// parseValue decodes raw as JSON and reports whether that worked. Anything
// that is not JSON is returned as the raw string.
func parseValue(raw string) (interface{}, bool) {
	v, err := decodeJSON(raw)
	if err != nil {
		return raw, false
	}
	return v, true
}

func decodeJSON(raw string) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return protocol.Normalize(v), nil
}
