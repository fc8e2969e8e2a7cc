package booking

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_LockSlotContention(t *testing.T) {
	locks := NewMemoryLocker()
	h := NewHandler(nil, locks, nil)
	r := h.Routes()

	body := `{"doctor_id":"doc-1","start_time":"2026-04-01T10:00:00Z"}`

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/lock-slot", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), `"locked":true`)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/lock-slot", strings.NewReader(body)))
	assert.Equal(t, http.StatusLocked, second.Code)
	assert.Contains(t, second.Body.String(), "try again")
}

func TestHandler_ReleaseSlotFreesLock(t *testing.T) {
	locks := NewMemoryLocker()
	h := NewHandler(nil, locks, nil)
	r := h.Routes()

	body := `{"doctor_id":"doc-1","start_time":"2026-04-01T10:00:00Z"}`

	lock := httptest.NewRecorder()
	r.ServeHTTP(lock, httptest.NewRequest(http.MethodPost, "/lock-slot", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, lock.Code)

	release := httptest.NewRecorder()
	r.ServeHTTP(release, httptest.NewRequest(http.MethodPost, "/release-slot", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, release.Code)

	again := httptest.NewRecorder()
	r.ServeHTTP(again, httptest.NewRequest(http.MethodPost, "/lock-slot", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, again.Code)
}

func TestHandler_LockSlotValidation(t *testing.T) {
	h := NewHandler(nil, NewMemoryLocker(), nil)
	r := h.Routes()

	tests := []struct {
		name string
		body string
	}{
		{"missing doctor", `{"start_time":"2026-04-01T10:00:00Z"}`},
		{"bad time", `{"doctor_id":"doc-1","start_time":"tomorrow"}`},
		{"bad json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/lock-slot", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_BookValidation(t *testing.T) {
	h := NewHandler(newServiceWithDB(nil, NewMemoryLocker(), nil, nil), NewMemoryLocker(), nil)
	r := h.Routes()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"doctor_id":"doc-1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
