package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	t.Setenv("LOMBRIDGE_HOME", t.TempDir())
	defer Reset()

	logger := NewLogger("test-component")
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}

	if logger.Data["component"] != "test-component" {
		t.Errorf("Expected component to be 'test-component', got %v", logger.Data["component"])
	}

	if NewLogger("test-component") != logger {
		t.Error("Expected loggers to be cached per component")
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "command handled",
				Data: logrus.Fields{
					"component":  "host",
					"request_id": "abc",
					"command":    "load_device",
				},
			},
			want: []string{"[INFO]", "[host]", "command handled", "command=load_device request_id=abc"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "probe failed",
				Data:    logrus.Fields{"component": "client"},
			},
			want:    []string{"[WARN]", "probe failed"},
			notWant: []string{"[client]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(tt.entry)
			if err != nil {
				t.Fatalf("Format returned error: %v", err)
			}
			got := string(out)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Expected output to contain %q, got: %s", w, got)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("Expected output not to contain %q, got: %s", nw, got)
				}
			}
		})
	}
}

func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("LOMBRIDGE_HOME", t.TempDir())
	t.Setenv("LOMBRIDGE_LOG_LEVEL", "debug")
	t.Setenv("LOMBRIDGE_LOG_CALLER", "true")
	defer Reset()

	logger := NewLogger("env-test")

	if logger.Logger.Level != logrus.DebugLevel {
		t.Errorf("Expected debug level from env var, got %v", logger.Logger.Level)
	}
	if !logger.Logger.ReportCaller {
		t.Error("Expected caller reporting to be enabled from env var")
	}
}

func TestStderrSinkUsesGlobalOutput(t *testing.T) {
	var buf bytes.Buffer
	restore := RedirectGlobalOutput(&buf)
	defer restore()

	entry := newLogger("sink", Config{
		File:   FileSinkConfig{Disabled: true},
		Format: FormatConfig{Preset: "simple", StructuredToStderr: "always"},
	})
	entry.Info("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("Expected global output to receive the entry, got %q", buf.String())
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "host.log")

	entry := newLogger("file", Config{
		File:   FileSinkConfig{Path: path},
		Format: FormatConfig{Preset: "json", StructuredToStderr: "never"},
	})
	entry.WithField("command", "get_session_info").Info("handled")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !strings.Contains(string(data), `"command":"get_session_info"`) {
		t.Errorf("Expected JSON entry in log file, got %q", string(data))
	}
}

func TestShouldLogToStderr(t *testing.T) {
	if !shouldLogToStderr("always", logrus.InfoLevel) {
		t.Error("always should log")
	}
	if shouldLogToStderr("never", logrus.DebugLevel) {
		t.Error("never should not log")
	}
	if !shouldLogToStderr("auto", logrus.DebugLevel) {
		t.Error("auto should log at debug level")
	}
}
