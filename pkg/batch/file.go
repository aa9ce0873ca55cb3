package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/pkg/protocol"
	"github.com/grovetools/lombridge/util/pathutil"
)

// File is the on-disk form of a batch.
type File struct {
	Actions []Action `yaml:"actions" json:"actions" toml:"actions"`
}

// LoadFile reads a batch from a YAML, JSON or TOML file, chosen by extension.
// YAML and JSON files may also hold a bare list of actions.
func LoadFile(path string) ([]Action, error) {
	path = pathutil.MustExpand(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("batch file", path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read batch file")
	}

	var actions []Action
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		actions, err = parseJSON(data)
	case ".toml":
		actions, err = parseTOML(data)
	default:
		actions, err = parseYAML(data)
	}
	if err != nil {
		return nil, errors.InvalidInput("batch file", err.Error()).WithDetail("path", path)
	}
	for i, a := range actions {
		if strings.TrimSpace(a.Command) == "" {
			return nil, errors.InvalidInput("batch file", fmt.Sprintf("action %d has no command", i+1)).WithDetail("path", path)
		}
	}
	return actions, nil
}

func parseYAML(data []byte) ([]Action, error) {
	var list []Action
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Actions, nil
}

func parseJSON(data []byte) ([]Action, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	items, ok := protocol.Normalize(raw).([]interface{})
	if !ok {
		obj, isObj := raw.(map[string]interface{})
		if !isObj {
			return nil, fmt.Errorf("expected a list of actions or an object with actions")
		}
		items, _ = obj["actions"].([]interface{})
	}

	actions := make([]Action, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("action %d is not an object", i+1)
		}
		command, _ := obj["command"].(string)
		params, _ := obj["params"].(map[string]interface{})
		actions = append(actions, Action{Command: command, Params: params})
	}
	return actions, nil
}

func parseTOML(data []byte) ([]Action, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	for i := range f.Actions {
		for k, v := range f.Actions[i].Params {
			if n, ok := v.(int64); ok {
				f.Actions[i].Params[k] = int(n)
			}
		}
	}
	return f.Actions, nil
}
