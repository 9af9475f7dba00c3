package myMiddleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(tokenString string) (int, string, error) {
	if tokenString == "good" {
		return 7, "bob", nil
	}
	return 0, "", errors.New("bad token")
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, name, ok := UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Header().Set("X-User", name)
	w.Header().Set("X-User-ID", strconv.Itoa(id))
	w.WriteHeader(http.StatusOK)
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	handler := NewAuthMiddleware(stubValidator{}).Handle(http.HandlerFunc(echoUser))

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "missing", status: http.StatusUnauthorized, body: "Missing authentication token\n"},
		{name: "invalid", header: "Bearer nope", status: http.StatusUnauthorized, body: "Invalid or expired token\n"},
		{name: "header", header: "Bearer good", status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusOK},
		{name: "query fallback", query: "?token=good", status: http.StatusOK},
		{name: "malformed header falls back to query", header: "good", query: "?token=good", status: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/messages"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, tt.status, rr.Code)
			if tt.body != "" {
				require.Equal(t, tt.body, rr.Body.String())
			}
			if tt.status == http.StatusOK {
				require.Equal(t, "bob", rr.Header().Get("X-User"))
				require.Equal(t, "7", rr.Header().Get("X-User-ID"))
			}
		})
	}
}

func TestLoggerSetsRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := Logger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rr.Header().Get("X-Request-Id"))
}
