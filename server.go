package main

import (
	"encoding/json"
	"net/http"

	"github.com/tevino/abool"

	"github.com/kaneland/tokengate/common"
	"github.com/kaneland/tokengate/gate"
)

var (
	VerifyTokenPath = "/verify-token"
)

type server struct {
	gate *gate.Gate
}

type verifyTokenRequest struct {
	IDToken string `json:"idToken"`
}

type verifyTokenResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Message     string `json:"message,omitempty"`
}

// verifyToken is the handler for the token verification endpoint. It decodes
// the submitted credential, lets the gate evaluate it and shapes the verdict
// into the response contract.
func (s *server) verifyToken(w http.ResponseWriter, r *http.Request) {
	logger := common.RequestLogger(r, "verify-token")

	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An unreadable body carries no credential. The gate turns the
		// empty token into the 400 response.
		logger.Infof("Failed to decode request body: %v", err)
	}

	verdict := s.gate.Evaluate(r.Context(), req.IDToken)
	if verdict.Allowed {
		common.ReturnJSONMessage(w, http.StatusOK, verifyTokenResponse{
			Success:     true,
			RedirectURL: verdict.RedirectURL,
		})
		return
	}

	common.ReturnJSONMessage(w, verdict.HTTPStatus, verifyTokenResponse{
		Success: false,
		Message: verdict.Message,
	})
}

// readiness is the handler that checks if the gate is ready for serving
// requests, i.e. whether the OIDC provider setup has finished.
func readiness(isReady *abool.AtomicBool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := http.StatusOK
		if !isReady.IsSet() {
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
	}
}
