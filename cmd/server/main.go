package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/verisso/go-oidc-idp/auth"
	"github.com/verisso/go-oidc-idp/clients/fakerepo"
	"github.com/verisso/go-oidc-idp/federation"
	"github.com/verisso/go-oidc-idp/idm/idmfake"
	"github.com/verisso/go-oidc-idp/internal/config"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/server"
	"github.com/verisso/go-oidc-idp/store"
	"github.com/verisso/go-oidc-idp/tenants"
	"github.com/verisso/go-oidc-idp/tenants/repofakes"
	"github.com/verisso/go-oidc-idp/token/keys"
)

const defaultTenant = "system"

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	srv, err := bootstrap(c)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// bootstrap wires the in-memory collaborators and registers the default
// tenant with a fresh signing key.
func bootstrap(c config.Config) (*server.Server, error) {
	keyPair, err := keys.GenerateRSAKeyPair(defaultTenant, 2048)
	if err != nil {
		return nil, fmt.Errorf("generating tenant signing key: %w", err)
	}

	tenantRepo := repofakes.NewFakeTenantRepo()
	tenantRepo.Upsert(&tenants.Tenant{
		Name:        defaultTenant,
		Issuer:      oidc.Issuer(c.GetIssuerBase()),
		SigningKeys: keyPair,
	})

	codes := store.NewAuthCodeManager(c.GetAuthorizationCodeTTL(), time.Now)
	sessions := store.NewSessionManager(c.GetSessionTTL(), time.Now)

	authService, err := auth.NewService(auth.Repos{
		Tenants:  tenantRepo,
		Clients:  fakerepo.NewFakeClientRepo(),
		Identity: idmfake.NewFakeBackend(),
	}, c, codes, sessions)
	if err != nil {
		return nil, err
	}

	var options []server.ServerOption
	if issuerURL := c.GetFederationIssuerURL(); issuerURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rp, err := federation.NewRelyingParty(ctx, issuerURL,
			c.GetFederationClientID(), c.GetFederationClientSecret(), c.GetFederationRedirectURL(), nil)
		if err != nil {
			return nil, fmt.Errorf("configuring federation relying party: %w", err)
		}
		options = append(options, server.WithFederation(rp))
	}

	return server.New(c, authService, tenantRepo, defaultTenant, options...)
}

func listenAndServe(srv *http.Server) error {
	log.Printf("Server listening on %s\n", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
