package gate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Reason identifies the terminal outcome of a single evaluation.
type Reason string

const (
	ReasonGranted           Reason = "Granted"
	ReasonMissingCredential Reason = "MissingCredential"
	ReasonInvalidCredential Reason = "InvalidCredential"
	ReasonDomainRejected    Reason = "DomainRejected"
	ReasonDenylisted        Reason = "Denylisted"
)

// TokenVerifier validates a raw ID token against the identity provider and
// returns the verified email identity. Any failure (bad signature, expiry,
// audience mismatch, malformed token, provider unreachable) is returned as an
// error; callers must not distinguish between these cases.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (email string, err error)
}

// Verdict is the gate's final decision for one credential.
type Verdict struct {
	Allowed     bool
	Reason      Reason
	HTTPStatus  int
	Message     string
	RedirectURL string
	// Email is the normalized identity, set once verification has succeeded.
	Email string
}

// Gate evaluates ID tokens against the configured access policy. It is
// immutable after construction and safe for concurrent use.
type Gate struct {
	verifier     TokenVerifier
	domainSuffix string
	denylist     map[string]struct{}
	redirectURL  string
}

func New(verifier TokenVerifier, emailDomain, redirectURL string, denylist []string) *Gate {
	denied := map[string]struct{}{}
	for _, email := range denylist {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			denied[email] = struct{}{}
		}
	}
	suffix := strings.ToLower(strings.TrimSpace(emailDomain))
	if !strings.HasPrefix(suffix, "@") {
		suffix = "@" + suffix
	}
	return &Gate{
		verifier:     verifier,
		domainSuffix: suffix,
		denylist:     denied,
		redirectURL:  redirectURL,
	}
}

// Evaluate runs the ordered policy checks for one raw ID token. Each check
// short-circuits: later checks never run once an earlier one has failed.
func (g *Gate) Evaluate(ctx context.Context, rawIDToken string) Verdict {
	logger := log.WithField("context", "token gate")

	if len(rawIDToken) == 0 {
		logger.Info("Rejecting request with no ID token")
		return Verdict{
			Reason:     ReasonMissingCredential,
			HTTPStatus: http.StatusBadRequest,
			Message:    "No ID token provided.",
		}
	}

	email, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		// The exact verification failure is operator-visible only. The
		// caller always sees the same message, whether the token was
		// forged, expired, issued for another audience or the provider
		// was unreachable.
		logger.Errorf("ID token verification failed: %v", err)
		return g.invalidCredential()
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		logger.Error("Verified token carries no email claim")
		return g.invalidCredential()
	}
	logger = logger.WithField("user", email)

	if !strings.HasSuffix(email, g.domainSuffix) {
		logger.Info("Rejecting account outside the organization domain")
		return Verdict{
			Reason:     ReasonDomainRejected,
			HTTPStatus: http.StatusForbidden,
			Message:    fmt.Sprintf("Access is restricted to %s accounts.", strings.TrimPrefix(g.domainSuffix, "@")),
			Email:      email,
		}
	}

	if _, denied := g.denylist[email]; denied {
		logger.Info("Rejecting denylisted account")
		return Verdict{
			Reason:     ReasonDenylisted,
			HTTPStatus: http.StatusForbidden,
			Message:    fmt.Sprintf("Access denied for %s.", email),
			Email:      email,
		}
	}

	logger.Info("Access granted")
	return Verdict{
		Allowed:     true,
		Reason:      ReasonGranted,
		HTTPStatus:  http.StatusOK,
		RedirectURL: g.redirectURL,
		Email:       email,
	}
}

func (g *Gate) invalidCredential() Verdict {
	return Verdict{
		Reason:     ReasonInvalidCredential,
		HTTPStatus: http.StatusUnauthorized,
		Message:    "Invalid ID token.",
	}
}
