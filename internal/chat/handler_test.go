package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist-ai/triage-platform/internal/classifier"
)

func newTestHandler(t *testing.T) (*Handler, *pipelineFixture) {
	t.Helper()
	f := newTestPipeline(t)
	return NewHandler(f.pipeline, f.alerts, nil, nil), f
}

func TestHandler_Message(t *testing.T) {
	h, _ := newTestHandler(t)
	r := h.Routes()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(`{"message":"hello"}`)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, classifier.IntentGreeting, resp.Intent)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Message)
}

func TestHandler_MessageEmergency(t *testing.T) {
	h, f := newTestHandler(t)
	r := h.Routes()

	body := `{"message":"severe bleeding from my arm","session_id":"sess-9","patient_name":"Ravi"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.IsEmergency)
	assert.Len(t, f.staff.received(), 1)
}

func TestHandler_MessageValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	r := h.Routes()

	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message":"   "}`},
		{"missing message", `{}`},
		{"bad json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
