package oidc

import (
	"context"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coreos/go-oidc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewProvider performs OIDC discovery against the given issuer. Discovery is
// retried with exponential backoff, as the identity provider may be
// unreachable while the process comes up.
func NewProvider(ctx context.Context, issuer *url.URL) (*oidc.Provider, error) {
	var provider *oidc.Provider

	op := func() error {
		var err error
		provider, err = oidc.NewProvider(ctx, issuer.String())
		if err != nil {
			log.Errorf("OIDC provider setup failed, retrying: %v", err)
		}
		return err
	}

	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, errors.Wrap(err, "OIDC provider setup failed")
	}
	return provider, nil
}

// Verifier validates raw ID tokens against the provider's signing keys and
// the configured audience. It implements the gate's TokenVerifier contract.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	timeout  time.Duration
}

// NewVerifier returns a Verifier that accepts only tokens issued for
// clientID. Each verification call is bounded by timeout, so a stalled key
// fetch surfaces as a verification error instead of hanging the request.
func NewVerifier(provider *oidc.Provider, clientID string, timeout time.Duration) *Verifier {
	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		timeout:  timeout,
	}
}

func (v *Verifier) Verify(ctx context.Context, rawIDToken string) (string, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", errors.Wrap(err, "id-token verification failed")
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return "", errors.Wrap(err, "retrieving user claims failed")
	}
	return claims.Email, nil
}
