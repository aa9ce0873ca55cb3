package errors

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestBridgeError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeNotFound, "device not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeAccessor, "set failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeAccessor) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeResolution) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("track", 2).WithDetail("name", "Operator")
	if detailed.Details["track"] != 2 {
		t.Error("WithDetail should add details")
	}
}

func TestIsThroughFmtWrap(t *testing.T) {
	inner := Timeout("load_device", 35*time.Second)
	outer := fmt.Errorf("batch item 2: %w", inner)

	if !Is(outer, ErrCodeTimeout) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
	if GetCode(outer) != ErrCodeTimeout {
		t.Errorf("expected code %s, got %s", ErrCodeTimeout, GetCode(outer))
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("GetCode should be empty for foreign errors")
	}
}

func TestErrorConstructors(t *testing.T) {
	res := Resolution("song.tracks[9].name", "tracks[9]", nil)
	if res.Code != ErrCodeResolution {
		t.Errorf("expected code %s, got %s", ErrCodeResolution, res.Code)
	}
	if res.Details["segment"] != "tracks[9]" {
		t.Error("Resolution should include segment detail")
	}

	conn := Connection("127.0.0.1:9877", fmt.Errorf("refused"))
	if conn.Details["address"] != "127.0.0.1:9877" {
		t.Error("Connection should include address detail")
	}

	failed := CommandFailed("load_device", "Device 'x' not found")
	if failed.Details["host_message"] != "Device 'x' not found" {
		t.Error("CommandFailed should keep the host message")
	}
}

func TestDescribe(t *testing.T) {
	err := Accessor("set", "value", fmt.Errorf("read only"))
	if got := Describe(err); got != "set 'value' failed: read only" {
		t.Errorf("unexpected description %q", got)
	}
	if strings.Contains(Describe(New(ErrCodeNotFound, "missing")), string(ErrCodeNotFound)) {
		t.Error("Describe should omit the code prefix")
	}
	if Describe(fmt.Errorf("boom")) != "boom" {
		t.Error("Describe should pass foreign errors through")
	}
}
