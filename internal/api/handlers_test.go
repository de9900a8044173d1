// internal/api/handlers_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transaction-intake/internal/common/config"
	"transaction-intake/internal/common/database"
	"transaction-intake/internal/common/logger"
	"transaction-intake/internal/intake/draft"
	"transaction-intake/internal/intake/record"
	"transaction-intake/internal/intake/store"
	"transaction-intake/internal/intake/submit"
	"transaction-intake/internal/intake/template"
)

// ==========================
// Fixture
// ==========================

type apiPersister struct {
	fail  bool
	calls int
}

func (p *apiPersister) CreateRecord(ctx context.Context, rec record.ExternalRecord) (string, error) {
	p.calls++
	if p.fail {
		return "", errors.New("remote store down")
	}
	return "rec_api_1", nil
}

type apiRenderer struct{}

func (apiRenderer) Render(ctx context.Context, id template.TemplateID, fields map[string]string) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

type apiNotifier struct{ calls int }

func (n *apiNotifier) Send(ctx context.Context, msg submit.Message) (string, error) {
	n.calls++
	return "msg_1", nil
}

type apiAuditor struct{}

func (apiAuditor) RecordSubmission(ctx context.Context, res *submit.Result) error { return nil }

type apiRecords struct{ fail bool }

func (r *apiRecords) GetRecord(ctx context.Context, recordID string) (map[string]interface{}, error) {
	if r.fail {
		return nil, errors.New("record fetch failed (status 404)")
	}
	return map[string]interface{}{record.FieldAddress: "123 Main St"}, nil
}

type apiFixture struct {
	app       *fiber.App
	srv       *Server
	redis     *miniredis.Miniredis
	persister *apiPersister
	notifier  *apiNotifier
	records   *apiRecords
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	sessions := store.NewSessionStore(rdb, 30*time.Minute)
	p := &apiPersister{}
	n := &apiNotifier{}
	rec := &apiRecords{}
	srv := NewServer(sessions, p, rec, apiRenderer{}, n, apiAuditor{}, submit.Options{
		Recipients: []string{"admin@example.com"},
	}, logger.NewTestLogger(t))

	app := fiber.New()
	srv.Register(app)
	return &apiFixture{app: app, srv: srv, redis: mr, persister: p, notifier: n, records: rec}
}

func (fx *apiFixture) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func (fx *apiFixture) createSession(t *testing.T) string {
	t.Helper()
	resp, body := fx.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID, _ := body["sessionId"].(string)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func (fx *apiFixture) setField(t *testing.T, sessionID, path string, value interface{}) {
	t.Helper()
	resp, _ := fx.do(t, http.MethodPatch, "/api/sessions/"+sessionID+"/fields",
		map[string]interface{}{"path": path, "value": value})
	require.Equal(t, http.StatusOK, resp.StatusCode, "set %s", path)
}

// fillSubmittableDraft drives the wizard to a state that passes every check.
func (fx *apiFixture) fillSubmittableDraft(t *testing.T, sessionID string) {
	t.Helper()

	fx.setField(t, sessionID, "agentRole", "LISTING_AGENT")
	fx.setField(t, sessionID, "property.address", "123 Main St, Philadelphia PA")
	fx.setField(t, sessionID, "property.mlsNumber", "PAPH123456")
	fx.setField(t, sessionID, "property.salePrice", "450000")
	fx.setField(t, sessionID, "property.occupancyStatus", "VACANT")

	resp, body := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/clients", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	client := body["client"].(map[string]interface{})
	clientID := client["id"].(string)

	fx.setField(t, sessionID, fmt.Sprintf("clients.%s.name", clientID), "Jane Seller")
	fx.setField(t, sessionID, fmt.Sprintf("clients.%s.email", clientID), "jane@example.com")
	fx.setField(t, sessionID, fmt.Sprintf("clients.%s.phone", clientID), "2155551234")
	fx.setField(t, sessionID, fmt.Sprintf("clients.%s.address", clientID), "123 Main St")

	fx.setField(t, sessionID, "commission.totalPercent", "6")
	fx.setField(t, sessionID, "commission.brokerEin", "12-3456789")
	fx.setField(t, sessionID, "signature.name", "Agent Smith")
	fx.setField(t, sessionID, "signature.termsAccepted", true)
	fx.setField(t, sessionID, "signature.infoConfirmed", true)
}

// ==========================
// Session lifecycle
// ==========================

func TestHealth(t *testing.T) {
	fx := newAPIFixture(t)
	resp, body := fx.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateAndGetSession(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)

	resp, body := fx.do(t, http.MethodGet, "/api/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sessionID, body["sessionId"])
	assert.Equal(t, float64(1), body["step"])
	assert.Equal(t, "Agent Role", body["stepLabel"])
	assert.Equal(t, float64(draft.TotalSteps), body["totalSteps"])
}

func TestGetSession_NotFound(t *testing.T) {
	fx := newAPIFixture(t)
	resp, body := fx.do(t, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", body["code"])
}

func TestResetSession(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)
	fx.setField(t, sessionID, "property.address", "123 Main St")

	resp, body := fx.do(t, http.MethodDelete, "/api/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	d := body["draft"].(map[string]interface{})
	prop := d["property"].(map[string]interface{})
	assert.Empty(t, prop["address"])
	assert.Equal(t, float64(1), body["step"])
}

// ==========================
// Field and client mutations
// ==========================

func TestSetField(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)

	resp, body := fx.do(t, http.MethodPatch, "/api/sessions/"+sessionID+"/fields",
		map[string]interface{}{"path": "property.address", "value": "500 Market St"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	d := body["draft"].(map[string]interface{})
	prop := d["property"].(map[string]interface{})
	assert.Equal(t, "500 Market St", prop["address"])
}

func TestSetField_UnknownPath(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)

	resp, body := fx.do(t, http.MethodPatch, "/api/sessions/"+sessionID+"/fields",
		map[string]interface{}{"path": "property.nope", "value": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_FIELD_PATH", body["code"])
}

func TestSetField_MissingPath(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)

	resp, _ := fx.do(t, http.MethodPatch, "/api/sessions/"+sessionID+"/fields",
		map[string]interface{}{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddAndRemoveClient(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)
	fx.setField(t, sessionID, "agentRole", "LISTING_AGENT")

	resp, body := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/clients", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := body["client"].(map[string]interface{})
	assert.Equal(t, "SELLER", first["type"])

	resp, body = fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/clients", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := body["client"].(map[string]interface{})

	resp, _ = fx.do(t, http.MethodDelete,
		"/api/sessions/"+sessionID+"/clients/"+first["id"].(string), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The last client is protected.
	resp, body = fx.do(t, http.MethodDelete,
		"/api/sessions/"+sessionID+"/clients/"+second["id"].(string), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CANNOT_REMOVE_LAST_CLIENT", body["code"])
}

func TestAddClient_DualAgentExplicitType(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)
	fx.setField(t, sessionID, "agentRole", "DUAL_AGENT")

	resp, body := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/clients",
		map[string]interface{}{"type": "SELLER"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	client := body["client"].(map[string]interface{})
	assert.Equal(t, "SELLER", client["type"])
}

// ==========================
// Navigation and validation
// ==========================

func TestGoToStep_AdvisoryValidation(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)

	// Jumping to an incomplete step succeeds; the errors ride along.
	resp, body := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/step",
		map[string]interface{}{"step": 2})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["step"])

	fieldErrors := body["fieldErrors"].(map[string]interface{})
	assert.Equal(t, "required", fieldErrors["property.address"])
}

func TestGoToStep_Clamps(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)

	resp, body := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/step",
		map[string]interface{}{"step": 99})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(draft.TotalSteps), body["step"])
}

func TestValidationEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)

	resp, body := fx.do(t, http.MethodGet, "/api/sessions/"+sessionID+"/validation?step=1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	fieldErrors := body["fieldErrors"].(map[string]interface{})
	assert.Equal(t, "required", fieldErrors["agentRole"])

	resp, body = fx.do(t, http.MethodGet, "/api/sessions/"+sessionID+"/validation", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	fieldErrors = body["fieldErrors"].(map[string]interface{})
	assert.Contains(t, fieldErrors, "agentRole")
	assert.Contains(t, fieldErrors, "clients")
	assert.Contains(t, fieldErrors, "signature.termsAccepted")
}

// ==========================
// Submission
// ==========================

func TestSubmit_Success(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)
	fx.fillSubmittableDraft(t, sessionID)

	resp, body := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "rec_api_1", body["recordId"])
	assert.Equal(t, 1, fx.persister.calls)
	assert.Equal(t, 1, fx.notifier.calls)

	// The session is gone after a successful submit.
	resp, _ = fx.do(t, http.MethodGet, "/api/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmit_ValidationFailure(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)

	resp, body := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	fieldErrors := body["fieldErrors"].(map[string]interface{})
	assert.Contains(t, fieldErrors, "agentRole")
	assert.Zero(t, fx.persister.calls)

	// A failed submit keeps the session so the agent can fix and retry.
	resp, _ = fx.do(t, http.MethodGet, "/api/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubmit_ExpiredSessionEvictsOrchestrator(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)
	fx.fillSubmittableDraft(t, sessionID)
	fx.persister.fail = true

	// A failed submit leaves an orchestrator behind for the retry.
	resp, _ := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	_, ok := fx.srv.orchestrators.Load(sessionID)
	require.True(t, ok)

	// Once the session expires, submitting again drops the stale entry.
	fx.redis.FastForward(31 * time.Minute)
	resp, _ = fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, ok = fx.srv.orchestrators.Load(sessionID)
	assert.False(t, ok)
}

func TestSweepOrchestrators(t *testing.T) {
	fx := newAPIFixture(t)
	sessionID := fx.createSession(t)
	fx.persister.fail = true

	resp, _ := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	_, ok := fx.srv.orchestrators.Load(sessionID)
	require.True(t, ok)

	// Before the TTL lapses the entry stays.
	fx.srv.sweepOrchestrators(time.Now())
	_, ok = fx.srv.orchestrators.Load(sessionID)
	assert.True(t, ok)

	// After the TTL it is evicted even though no further request arrives.
	fx.srv.sweepOrchestrators(time.Now().Add(31 * time.Minute))
	_, ok = fx.srv.orchestrators.Load(sessionID)
	assert.False(t, ok)
}

func TestGetRecord(t *testing.T) {
	fx := newAPIFixture(t)

	resp, body := fx.do(t, http.MethodGet, "/api/records/recABC123", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "recABC123", body["recordId"])
	fields := body["fields"].(map[string]interface{})
	assert.Equal(t, "123 Main St", fields[record.FieldAddress])
}

func TestGetRecord_FetchError(t *testing.T) {
	fx := newAPIFixture(t)
	fx.records.fail = true

	resp, body := fx.do(t, http.MethodGet, "/api/records/recMISSING", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "RECORD_PERSIST_FAILED", body["code"])
}

func TestSubmit_PersistFailureKeepsSession(t *testing.T) {
	fx := newAPIFixture(t)
	fx.persister.fail = true
	sessionID := fx.createSession(t)
	fx.fillSubmittableDraft(t, sessionID)

	resp, body := fx.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	// One initial attempt plus exactly one retry.
	assert.Equal(t, 2, fx.persister.calls)

	resp, _ = fx.do(t, http.MethodGet, "/api/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
