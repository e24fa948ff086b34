package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "WARN", Format: "json", Output: &buf})

	log.Info("hidden")
	log.WithField("view", "flights").Warn("shown")

	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "flights", record["view"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := New(Options{Level: "chatty"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
