package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		err  bool
	}{
		{"debug", LogLevelDebug, false},
		{"", LogLevelInfo, false},
		{"INFO", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"loud", LogLevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestJobLogger_JSONContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})
	l.WithComponent("runner").WithJob("Hopper_seed_1").WithContext("run_id", "r1").Info("Job started", "pid", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Job started", entry["msg"])
	assert.Equal(t, "runner", entry["component"])
	assert.Equal(t, "Hopper_seed_1", entry["job"])
	assert.Equal(t, "r1", entry["run_id"])
	assert.EqualValues(t, 42, entry["pid"])
}

func TestJobLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "text", Output: &buf})
	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestWithContextDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})
	_ = base.WithContext("k", "v")
	base.Info("plain")
	assert.NotContains(t, buf.String(), "k=v")
}

func TestLogJobResult(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})

	LogJobResult(l, "Hopper_seed_1", 0, time.Second, true, "")
	LogJobResult(l, "Hopper_seed_2", 3, time.Second, false, "job Hopper_seed_2 exited with code 3")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=INFO")
	assert.Contains(t, lines[0], "job=Hopper_seed_1")
	assert.Contains(t, lines[1], "level=ERROR")
	assert.Contains(t, lines[1], "exit_code=3")
}

func TestLogResourceSample(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})
	LogResourceSample(l, 12.345, 50, 2, 3)
	out := buf.String()
	assert.Contains(t, out, "cpu_percent=12.3")
	assert.Contains(t, out, "active_jobs=2")
	assert.Contains(t, out, "total_jobs=3")
}

func TestStartTimer(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})

	stop := StartTimer(l, "experiment", "run_id", "r1")
	assert.Empty(t, buf.String(), "nothing is logged until the timer stops")
	stop()

	out := buf.String()
	assert.Contains(t, out, "operation=experiment")
	assert.Contains(t, out, "duration=")
	assert.Contains(t, out, "run_id=r1")
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
