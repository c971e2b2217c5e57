package trace

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step is one recorded pipeline stage with its duration.
type Step struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Trace accumulates the stages one request passed through. It is emitted to
// the log when finished, including partial traces for failed requests.
type Trace struct {
	id      string
	started time.Time

	mu    sync.Mutex
	steps []Step
}

// Recorder creates traces and renders links into an external trace UI.
type Recorder struct {
	uiBaseURL string
	logger    *zap.Logger
}

// NewRecorder creates a trace recorder. uiBaseURL may be empty; URL then
// renders no link.
func NewRecorder(uiBaseURL string, logger *zap.Logger) *Recorder {
	return &Recorder{uiBaseURL: strings.TrimSuffix(uiBaseURL, "/"), logger: logger}
}

// Start opens a new trace with a fresh id.
func (r *Recorder) Start() *Trace {
	return &Trace{id: uuid.NewString(), started: time.Now()}
}

// URL returns the trace UI link for the given trace, or "" when no UI is
// configured.
func (r *Recorder) URL(t *Trace) string {
	if r.uiBaseURL == "" {
		return ""
	}
	return r.uiBaseURL + "/traces/" + t.id
}

// Finish logs the trace with every recorded step. Called on both success and
// failure so aborted requests still leave a partial trace.
func (r *Recorder) Finish(t *Trace, outcome string) {
	t.mu.Lock()
	steps := make([]Step, len(t.steps))
	copy(steps, t.steps)
	t.mu.Unlock()

	fields := []zap.Field{
		zap.String("trace_id", t.id),
		zap.String("outcome", outcome),
		zap.Duration("total", time.Since(t.started)),
	}
	for _, s := range steps {
		fields = append(fields, zap.Duration("step_"+s.Name, s.Duration))
		if s.Err != "" {
			fields = append(fields, zap.String("step_"+s.Name+"_error", s.Err))
		}
	}
	r.logger.Info("pipeline trace", fields...)
}

// ID returns the trace identifier.
func (t *Trace) ID() string { return t.id }

// Record appends a completed step. err may be nil.
func (t *Trace) Record(name string, start time.Time, err error) {
	step := Step{Name: name, Duration: time.Since(start)}
	if err != nil {
		step.Err = err.Error()
	}
	t.mu.Lock()
	t.steps = append(t.steps, step)
	t.mu.Unlock()
}

// Steps returns a copy of the recorded steps.
func (t *Trace) Steps() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}
