// Package protocol defines the JSON command/response envelope exchanged
// between the automation client and the host, and the parse-success framing
// used on the TCP stream.
package protocol

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/grovetools/lombridge/errors"
)

// Status is the outcome carried by a Response.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Command is a single client request.
type Command struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// Response is the single reply to a Command.
type Response struct {
	Status  Status
	Result  interface{}
	Message string
}

// Success builds a successful Response.
func Success(result interface{}) Response {
	return Response{Status: StatusSuccess, Result: result}
}

// Failure builds an error Response from err.
func Failure(err error) Response {
	return Response{Status: StatusError, Message: errors.Describe(err)}
}

// EncodeResponse renders resp as a single JSON value. A result that cannot
// be encoded, such as a NaN float, is replaced by an error response so the
// command still gets its one reply.
func EncodeResponse(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err == nil {
		return data
	}
	data, _ = json.Marshal(Failure(errors.Protocol("cannot encode result", err)))
	return data
}

// OK reports whether the response carries a result.
func (r Response) OK() bool { return r.Status == StatusSuccess }

type successWire struct {
	Status Status      `json:"status"`
	Result interface{} `json:"result"`
}

type errorWire struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// MarshalJSON writes {"status","result"} on success and {"status","message"} on error.
// A null result is kept explicit.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Status == StatusError {
		return json.Marshal(errorWire{Status: r.Status, Message: r.Message})
	}
	return json.Marshal(successWire{Status: StatusSuccess, Result: r.Result})
}

// UnmarshalJSON accepts either wire shape.
func (r *Response) UnmarshalJSON(data []byte) error {
	var wire struct {
		Status  Status          `json:"status"`
		Result  json.RawMessage `json:"result"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Status = wire.Status
	r.Message = wire.Message
	r.Result = nil
	if len(wire.Result) > 0 {
		v, err := decodeValue(wire.Result)
		if err != nil {
			return err
		}
		r.Result = v
	}
	return nil
}

// DecodeCommand parses one framed request.
func DecodeCommand(raw []byte) (Command, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return Command{}, errors.Protocol("request is not valid JSON", err)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return Command{}, errors.Protocol("request must be a JSON object", nil)
	}
	typ, _ := obj["type"].(string)
	if strings.TrimSpace(typ) == "" {
		return Command{}, errors.Protocol("request has no command type", nil)
	}
	cmd := Command{Type: typ, Params: map[string]interface{}{}}
	switch params := obj["params"].(type) {
	case nil:
	case map[string]interface{}:
		cmd.Params = params
	default:
		return Command{}, errors.Protocol("params must be a JSON object", nil)
	}
	return cmd, nil
}

// DecodeResponse parses one framed reply.
func DecodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, errors.Protocol("response is not valid JSON", err)
	}
	if resp.Status != StatusSuccess && resp.Status != StatusError {
		return Response{}, errors.Protocol("response has unknown status '"+string(resp.Status)+"'", nil)
	}
	return resp, nil
}

// decodeValue decodes JSON keeping integers distinct from floats.
func decodeValue(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

// Normalize converts json.Number leaves to int when integral and float64
// otherwise, recursing into arrays and objects.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := t.Int64(); err == nil && int64(int(i)) == i {
				return int(i)
			}
		}
		f, err := t.Float64()
		if err != nil {
			return s
		}
		return f
	case []interface{}:
		for i := range t {
			t[i] = Normalize(t[i])
		}
		return t
	case map[string]interface{}:
		for k := range t {
			t[k] = Normalize(t[k])
		}
		return t
	default:
		return v
	}
}
