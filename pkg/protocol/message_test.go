package protocol

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/grovetools/lombridge/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseWireShape(t *testing.T) {
	data, err := json.Marshal(Success(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","result":null}`, string(data))

	data, err = json.Marshal(Failure(errors.Resolution("song.tracks[9]", "tracks[9]", nil)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"cannot resolve 'tracks[9]' in path 'song.tracks[9]'"}`, string(data))
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, cmd Command)
	}{
		{
			name: "numbers keep their kind",
			raw:  `{"type":"universal_accessor","params":{"value":5,"ratio":0.5,"big":1e3}}`,
			check: func(t *testing.T, cmd Command) {
				assert.Equal(t, 5, cmd.Params["value"])
				assert.Equal(t, 0.5, cmd.Params["ratio"])
				assert.Equal(t, 1000.0, cmd.Params["big"])
			},
		},
		{
			name: "missing params becomes empty map",
			raw:  `{"type":"get_session_info"}`,
			check: func(t *testing.T, cmd Command) {
				assert.NotNil(t, cmd.Params)
				assert.Empty(t, cmd.Params)
			},
		},
		{name: "array", raw: `[1,2]`, wantErr: true},
		{name: "no type", raw: `{"params":{}}`, wantErr: true},
		{name: "params not object", raw: `{"type":"x","params":[1]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeProtocol, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, cmd)
		})
	}
}

func TestDecodeResponseRejectsUnknownStatus(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"status":"maybe"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeProtocol))

	resp, err := DecodeResponse([]byte(`{"status":"success","result":{"n":3}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"n": 3}, resp.Result)
}

func TestEncodeResponseFallsBackOnUnencodableResult(t *testing.T) {
	data := EncodeResponse(Success(map[string]interface{}{"tempo": math.NaN()}))

	resp, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Contains(t, resp.Message, "cannot encode result")

	data = EncodeResponse(Success(120.0))
	assert.JSONEq(t, `{"status":"success","result":120}`, string(data))
}
