package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug", zerolog.InfoLevel))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" Warning ", zerolog.InfoLevel))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud", zerolog.InfoLevel))
}

func TestNewJSONAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New("info", "json", &buf), "planner")
	log.Debug().Msg("hidden")
	log.Info().Str("task", "t1").Msg("rolled over")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "planner", entry["component"])
	assert.Equal(t, "t1", entry["task"])
	assert.Equal(t, "rolled over", entry["message"])
}

func TestGormWriter(t *testing.T) {
	var buf bytes.Buffer
	GormWriter{Log: New("info", "json", &buf)}.Printf("slow sql %dms", 1200)
	assert.Contains(t, buf.String(), "slow sql 1200ms")
}
