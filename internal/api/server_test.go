package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonewatch/internal/events"
	"zonewatch/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMonitor struct {
	status     pipeline.Status
	resetCalls int
}

func (m *fakeMonitor) Status() pipeline.Status { return m.status }
func (m *fakeMonitor) Reset()                  { m.resetCalls++ }

type fakeLister struct {
	records []events.Record
	kind    events.Kind
	since   *time.Time
	limit   int
	err     error
}

func (l *fakeLister) List(kind events.Kind, since *time.Time, limit int) ([]events.Record, error) {
	l.kind, l.since, l.limit = kind, since, limit
	return l.records, l.err
}

func TestStatusEndpoint(t *testing.T) {
	monitor := &fakeMonitor{status: pipeline.Status{State: "active", Recording: true}}
	router := NewServer(monitor, nil, nil).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got pipeline.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "active", got.State)
	assert.True(t, got.Recording)
}

func TestResetEndpoint(t *testing.T) {
	monitor := &fakeMonitor{}
	router := NewServer(monitor, nil, nil).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reset", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, monitor.resetCalls)
}

func TestEventsEndpoint(t *testing.T) {
	lister := &fakeLister{records: []events.Record{
		events.NewRecord(time.Now(), events.KindMotionStarted, nil),
	}}
	router := NewServer(&fakeMonitor{}, lister, nil).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/events?kind=motion-started&limit=5&since=2026-03-14T23:00:00Z", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, events.KindMotionStarted, lister.kind)
	assert.Equal(t, 5, lister.limit)
	require.NotNil(t, lister.since)
	assert.Equal(t, 23, lister.since.UTC().Hour())

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestEventsEndpointBadParams(t *testing.T) {
	router := NewServer(&fakeMonitor{}, &fakeLister{}, nil).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events?since=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events?limit=-2", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsEndpointWithoutStore(t *testing.T) {
	router := NewServer(&fakeMonitor{}, nil, nil).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
