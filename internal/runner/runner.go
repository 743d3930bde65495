// Package runner executes code-challenge submissions against the remote
// sandbox, one at a time.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"hackterm/internal/api"
	"hackterm/internal/telemetry"
)

// ErrBusy is returned when a run is requested while another is in flight.
var ErrBusy = errors.New("runner: execution already in flight")

type Runner struct {
	mu     sync.Mutex
	busy   bool
	client *api.Client
	logger *telemetry.JSONLogger
}

func New(client *api.Client, logger *telemetry.JSONLogger) *Runner {
	if logger == nil {
		logger, _ = telemetry.NewJSONLogger("")
	}
	return &Runner{client: client, logger: logger}
}

// Busy reports whether a run is in flight. The UI disables the run key and
// shows a spinner while this is true.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Run submits code to the remote executor and waits for the result. A second
// Run while one is in flight fails fast with ErrBusy instead of queueing;
// the sandbox executes one submission per user at a time.
func (r *Runner) Run(ctx context.Context, language, code string) (api.CodeRunResult, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return api.CodeRunResult{}, ErrBusy
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	start := time.Now()
	result, err := r.client.ExecuteCode(ctx, language, code)
	if err != nil {
		r.logger.Warn("runner.run_failed", map[string]any{"language": language, "error": err.Error()})
		return api.CodeRunResult{}, err
	}
	r.logger.Info("runner.run_finished", map[string]any{
		"language": language,
		"exit":     result.ExitCode,
		"ms":       time.Since(start).Milliseconds(),
	})
	return result, nil
}
