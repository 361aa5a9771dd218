package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "debug", Format: "json", Output: &buf, Service: "fleetverify"})

	Info("driver verified", Fields{"driver_id": 7})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "driver verified", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "fleetverify", line["service"])
	assert.EqualValues(t, 7, line["driver_id"])
	assert.Contains(t, line["caller"], "logger_test.go")
}

func TestError_AttachesError(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "debug", Format: "json", Output: &buf})

	WithContext(Fields{"request_id": "abc"}).Error("save failed", errors.New("boom"), nil)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "abc", line["request_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "warn", Format: "json", Output: &buf})

	Debug("hidden")
	Info("hidden")
	assert.Zero(t, buf.Len())

	Warn("shown")
	assert.NotZero(t, buf.Len())

	// restore for other packages sharing the process
	Initialize(Config{Level: "info", Format: "json"})
}
