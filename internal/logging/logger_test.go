package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newConsoleLogger("stream", &buf)
	l.SetLevel(WARN, WARN)

	l.Info("скрытое сообщение")
	l.Warn("видимое %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "скрытое")
	assert.Contains(t, out, "[WARN] [stream] видимое 42")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, INFO, ParseLevel("что-то"))
}

func TestLoggerManager_ReusesComponentLogger(t *testing.T) {
	lm := GetLoggerManager()

	first, err := lm.GetLogger("test-component")
	require.NoError(t, err)
	second := lm.MustGetLogger("test-component")

	assert.Same(t, first, second)
}

func TestLoggerManager_SetLevelAppliesToLaterLoggers(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	early := lm.MustGetLogger("early")

	lm.SetLevel(ERROR, WARN)
	late := lm.MustGetLogger("late")

	for _, l := range []*Logger{early, late} {
		assert.Equal(t, ERROR, l.minConsoleLevel)
		assert.Equal(t, WARN, l.minFileLevel)
	}
}
