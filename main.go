package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tevino/abool"

	"github.com/kaneland/tokengate/common"
	"github.com/kaneland/tokengate/gate"
	"github.com/kaneland/tokengate/oidc"
)

func main() {

	c, err := parseConfig()
	if err != nil {
		log.Fatalf("Failed to parse configuration: %+v", err)
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", c.LogLevel, err)
	}
	log.SetLevel(level)
	log.Infof("Config: denylist entries=%d, domain=%s, redirect=%s",
		len(c.Denylist), c.EmailDomain, c.TargetURL)

	// Start readiness probe immediately
	log.Infof("Starting readiness probe at %v", c.ReadinessProbePort)
	isReady := abool.New()
	go func() {
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", c.ReadinessProbePort), readiness(isReady)))
	}()

	// Read custom CA bundle
	var caBundle []byte
	if c.CABundlePath != "" {
		caBundle, err = ioutil.ReadFile(c.CABundlePath)
		if err != nil {
			log.Fatalf("Could not read CA bundle path %s: %v", c.CABundlePath, err)
		}
	}

	// Perform OIDC discovery against the identity provider
	ctx := common.SetTLSContext(context.Background(), caBundle)
	provider, err := oidc.NewProvider(ctx, c.ProviderURL)
	if err != nil {
		log.Fatalf("OIDC provider setup failed: %v", err)
	}

	verifier := oidc.NewVerifier(provider, c.ClientID, c.VerifyTimeout)
	tokenGate := gate.New(verifier, c.EmailDomain, c.TargetURL.String(), c.Denylist)

	s := &server{gate: tokenGate}

	// Register handlers for routes
	router := mux.NewRouter()
	router.HandleFunc(VerifyTokenPath, s.verifyToken).Methods(http.MethodPost)

	web := &webServer{
		TemplatePaths: c.TemplatePath,
		ClientID:      c.ClientID,
		ClientName:    c.ClientName,
		ProviderURL:   c.ProviderURL.String(),
		TargetURL:     c.TargetURL.String(),
	}
	if err := web.addRoutes(router); err != nil {
		log.Fatalf("Failed to set up the login page: %v", err)
	}

	// Setup complete, mark server ready
	isReady.Set()

	// Start server
	log.Infof("Starting server at %v:%v", c.Hostname, c.Port)
	handler := handlers.CombinedLoggingHandler(os.Stdout, handlers.CORS()(router))
	log.Fatal(http.ListenAndServe(fmt.Sprintf("%s:%d", c.Hostname, c.Port), handler))
}
