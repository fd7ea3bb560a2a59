package sweep

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simufolio/internal/workers"
	"simufolio/pkg/errors"
	"simufolio/pkg/logger"
)

type fakeRunner struct {
	report workers.SweepReport
	err    error
	calls  int
}

func (r *fakeRunner) RunSweep(_ context.Context, _ time.Time) (workers.SweepReport, error) {
	r.calls++
	return r.report, r.err
}

func doRequest(h *Handler, method, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/internal/sweep", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSweepTrigger_Success(t *testing.T) {
	runner := &fakeRunner{report: workers.SweepReport{Processed: 5, Sent: 2, Skipped: 3}}
	handler := New(runner, "s3cret", logger.Get())

	rec := doRequest(handler, http.MethodPost, "s3cret")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)

	var report workers.SweepReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, runner.report, report)
}

func TestSweepTrigger_MissingToken(t *testing.T) {
	runner := &fakeRunner{}
	handler := New(runner, "s3cret", logger.Get())

	rec := doRequest(handler, http.MethodPost, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, runner.calls, "unauthorized requests must not trigger a sweep")
}

func TestSweepTrigger_WrongToken(t *testing.T) {
	runner := &fakeRunner{}
	handler := New(runner, "s3cret", logger.Get())

	rec := doRequest(handler, http.MethodPost, "wrong")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestSweepTrigger_EmptySecretRejectsEverything(t *testing.T) {
	// A blank configured secret must never degrade to open access.
	runner := &fakeRunner{}
	handler := New(runner, "", logger.Get())

	rec := doRequest(handler, http.MethodPost, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestSweepTrigger_MethodNotAllowed(t *testing.T) {
	runner := &fakeRunner{}
	handler := New(runner, "s3cret", logger.Get())

	rec := doRequest(handler, http.MethodGet, "s3cret")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestSweepTrigger_RunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.Wrap(errors.ErrPersistence, "db down")}
	handler := New(runner, "s3cret", logger.Get())

	rec := doRequest(handler, http.MethodPost, "s3cret")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
