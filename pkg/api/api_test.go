package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/review"
	"github.com/strands-sre/strands/pkg/strandserr"
)

type fakeDB struct {
	err error
}

func (f *fakeDB) Ping(ctx context.Context) error { return f.err }

type fakePlaybooks struct {
	all   []models.Playbook
	byID  map[string]models.Playbook
	idErr error
}

func (f *fakePlaybooks) List(ctx context.Context) ([]models.Playbook, error) {
	return f.all, nil
}

func (f *fakePlaybooks) Get(ctx context.Context, id string) (models.Playbook, error) {
	if f.idErr != nil {
		return models.Playbook{}, f.idErr
	}
	p, ok := f.byID[id]
	if !ok {
		return models.Playbook{}, strandserr.Newf(strandserr.KindValidationFailed, "fakePlaybooks.Get", "playbook %s not found", id)
	}
	return p, nil
}

type fakeReviews struct {
	outcome review.Outcome
	err     error

	lastDecisionID, lastReviewer, lastNotes string
}

func (f *fakeReviews) Approve(ctx context.Context, decisionID, reviewer, notes string) (review.Outcome, error) {
	f.lastDecisionID, f.lastReviewer, f.lastNotes = decisionID, reviewer, notes
	return f.outcome, f.err
}

func (f *fakeReviews) Reject(ctx context.Context, decisionID, reviewer, notes string) (review.Outcome, error) {
	f.lastDecisionID, f.lastReviewer, f.lastNotes = decisionID, reviewer, notes
	return f.outcome, f.err
}

func newTestServer(db DBPinger, pb PlaybookService, rv ReviewService, registry *resilience.Registry) *Server {
	return NewServer(db, pb, rv, registry)
}

func TestHealth_AllUp(t *testing.T) {
	s := newTestServer(&fakeDB{}, &fakePlaybooks{}, &fakeReviews{}, resilience.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, healthStatusHealthy, body.Status)
	require.Equal(t, healthStatusHealthy, body.Database.Status)
}

func TestHealth_DatabaseDown(t *testing.T) {
	s := newTestServer(&fakeDB{err: errors.New("connection refused")}, &fakePlaybooks{}, &fakeReviews{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, healthStatusUnhealthy, body.Status)
}

func TestHealth_OpenCircuitDegradesStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("prometheus", resilience.NewPolicy("prometheus",
		resilience.BreakerConfig{FailureThreshold: 1, RecoveryAfter: time.Minute, HalfOpenProbeCount: 1},
		resilience.DefaultRetryConfig(), 0))
	// Force the breaker open by recording one non-retryable failure
	// through Execute (a retryable kind would make Execute sleep through
	// its backoff before returning).
	_ = registry.Get("prometheus").Execute(context.Background(), func(ctx context.Context) error {
		return strandserr.New(strandserr.KindValidationFailed, "test", nil)
	})

	s := newTestServer(&fakeDB{}, &fakePlaybooks{}, &fakeReviews{}, registry)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Adapters, "prometheus")
}

func TestListPlaybooks(t *testing.T) {
	pb := &fakePlaybooks{all: []models.Playbook{{ID: "pb-1"}, {ID: "pb-2"}}}
	s := newTestServer(&fakeDB{}, pb, &fakeReviews{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playbooks", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Playbook
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
}

func TestGetPlaybook_Found(t *testing.T) {
	pb := &fakePlaybooks{byID: map[string]models.Playbook{"pb-1": {ID: "pb-1", Status: models.StatusActive}}}
	s := newTestServer(&fakeDB{}, pb, &fakeReviews{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playbooks/pb-1", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Playbook
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "pb-1", got.ID)
}

func TestGetPlaybook_NotFound(t *testing.T) {
	s := newTestServer(&fakeDB{}, &fakePlaybooks{byID: map[string]models.Playbook{}}, &fakeReviews{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playbooks/missing", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveReview(t *testing.T) {
	rv := &fakeReviews{outcome: review.Outcome{Record: models.ReviewRecord{ID: "rev-dec-1", State: models.ReviewApproved}}}
	s := newTestServer(&fakeDB{}, &fakePlaybooks{}, rv, nil)

	body, _ := json.Marshal(ReviewActionRequest{Reviewer: "[email protected]", Notes: "looks right"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/dec-1/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "dec-1", rv.lastDecisionID)
	require.Equal(t, "[email protected]", rv.lastReviewer)
	var got models.ReviewRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, models.ReviewApproved, got.State)
}

func TestApproveReview_MissingReviewer(t *testing.T) {
	s := newTestServer(&fakeDB{}, &fakePlaybooks{}, &fakeReviews{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/dec-1/approve", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectReview_InvalidReviewer(t *testing.T) {
	rv := &fakeReviews{err: strandserr.New(strandserr.KindInvalidReviewer, "review.transition", nil)}
	s := newTestServer(&fakeDB{}, &fakePlaybooks{}, rv, nil)

	body, _ := json.Marshal(ReviewActionRequest{Reviewer: "strands-controller"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/dec-1/reject", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRejectReview_AlreadyClosed(t *testing.T) {
	rv := &fakeReviews{err: strandserr.New(strandserr.KindReviewAlreadyClosed, "review.transition", nil)}
	s := newTestServer(&fakeDB{}, &fakePlaybooks{}, rv, nil)

	body, _ := json.Marshal(ReviewActionRequest{Reviewer: "[email protected]"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/dec-1/reject", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}
