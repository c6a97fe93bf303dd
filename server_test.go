package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/tevino/abool"

	"github.com/kaneland/tokengate/gate"
)

type stubVerifier struct {
	email string
	err   error
}

func (s *stubVerifier) Verify(ctx context.Context, rawIDToken string) (string, error) {
	return s.email, s.err
}

func newTestRouter(verifier gate.TokenVerifier, denylist []string) *mux.Router {
	g := gate.New(verifier, "kaneland.org", "https://mail.google.com", denylist)
	s := &server{gate: g}
	router := mux.NewRouter()
	router.HandleFunc(VerifyTokenPath, s.verifyToken).Methods(http.MethodPost)
	return router
}

func TestVerifyToken(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		verifier     *stubVerifier
		denylist     []string
		expectStatus int
		expectBody   []string
		rejectedBody []string
	}{
		{
			name:         "missing idToken field",
			body:         `{}`,
			verifier:     &stubVerifier{},
			expectStatus: http.StatusBadRequest,
			expectBody:   []string{`"success":false`, "No ID token provided."},
		},
		{
			name:         "malformed request body",
			body:         `{not json`,
			verifier:     &stubVerifier{},
			expectStatus: http.StatusBadRequest,
			expectBody:   []string{`"success":false`},
		},
		{
			name:         "invalid token",
			body:         `{"idToken": "expired-token"}`,
			verifier:     &stubVerifier{err: errors.New("oidc: token is expired")},
			expectStatus: http.StatusUnauthorized,
			expectBody:   []string{`"success":false`, "Invalid ID token."},
			rejectedBody: []string{"expired"},
		},
		{
			name:         "out-of-domain account",
			body:         `{"idToken": "sometoken"}`,
			verifier:     &stubVerifier{email: "someone@gmail.com"},
			expectStatus: http.StatusForbidden,
			expectBody:   []string{`"success":false`, "restricted to kaneland.org accounts"},
		},
		{
			name:         "denylisted account",
			body:         `{"idToken": "sometoken"}`,
			verifier:     &stubVerifier{email: "user_to_deny@kaneland.org"},
			denylist:     []string{"user_to_deny@kaneland.org"},
			expectStatus: http.StatusForbidden,
			expectBody:   []string{`"success":false`, "user_to_deny@kaneland.org"},
		},
		{
			name:         "granted",
			body:         `{"idToken": "sometoken"}`,
			verifier:     &stubVerifier{email: "Student@KANELAND.ORG"},
			denylist:     []string{"user_to_deny@kaneland.org"},
			expectStatus: http.StatusOK,
			expectBody:   []string{`"success":true`, `"redirectUrl":"https://mail.google.com"`},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			router := newTestRouter(test.verifier, test.denylist)

			req := httptest.NewRequest(http.MethodPost, VerifyTokenPath, strings.NewReader(test.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, test.expectStatus, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			for _, fragment := range test.expectBody {
				require.Contains(t, w.Body.String(), fragment)
			}
			for _, fragment := range test.rejectedBody {
				require.NotContains(t, w.Body.String(), fragment)
			}
		})
	}
}

func TestVerifyTokenMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&stubVerifier{email: "student@kaneland.org"}, nil)

	req := httptest.NewRequest(http.MethodGet, VerifyTokenPath, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReadiness(t *testing.T) {
	isReady := abool.New()
	handler := readiness(isReady)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	isReady.Set()
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
