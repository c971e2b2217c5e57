package trace

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStart_AssignsUniqueIDs(t *testing.T) {
	r := NewRecorder("", zap.NewNop())

	first := r.Start()
	second := r.Start()

	_, err := uuid.Parse(first.ID())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestURL(t *testing.T) {
	tr := NewRecorder("https://traces.example.com/", zap.NewNop())
	trace := tr.Start()
	assert.Equal(t, "https://traces.example.com/traces/"+trace.ID(), tr.URL(trace))

	none := NewRecorder("", zap.NewNop())
	assert.Empty(t, none.URL(trace))
}

func TestRecord_CollectsSteps(t *testing.T) {
	r := NewRecorder("", zap.NewNop())
	trace := r.Start()

	trace.Record("retrieving", time.Now(), nil)
	trace.Record("generating", time.Now(), errors.New("backend down"))

	steps := trace.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "retrieving", steps[0].Name)
	assert.Empty(t, steps[0].Err)
	assert.Equal(t, "generating", steps[1].Name)
	assert.Equal(t, "backend down", steps[1].Err)

	// Finish must not panic on partial traces.
	r.Finish(trace, "error")
}
