package federation

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// RelyingParty brokers logins against an external OIDC issuer: it
// builds the outbound authorization URL and exchanges the returned
// code for a verified ID token.
type RelyingParty struct {
	provider *gooidc.Provider
	config   *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// NewRelyingParty discovers the external issuer's endpoints and wires
// an oauth2 client configuration for the registered client.
func NewRelyingParty(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string, scopes []string) (*RelyingParty, error) {
	provider, err := gooidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover federation provider: %w", err)
	}

	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}
	return &RelyingParty{
		provider: provider,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		},
		verifier: provider.Verifier(&gooidc.Config{ClientID: clientID}),
	}, nil
}

// AuthState carries the per-login values the callback needs to
// complete the exchange.
type AuthState struct {
	State        string
	Nonce        string
	CodeVerifier string
}

// NewAuthState generates fresh state, nonce and PKCE verifier values.
func NewAuthState() AuthState {
	return AuthState{
		State:        randomString(32),
		Nonce:        randomString(32),
		CodeVerifier: randomString(32),
	}
}

// AuthCodeURL returns the external authorization URL with PKCE and
// nonce parameters attached.
func (rp *RelyingParty) AuthCodeURL(state AuthState) string {
	return rp.config.AuthCodeURL(state.State,
		oauth2.SetAuthURLParam("nonce", state.Nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge(state.CodeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange redeems the callback code and verifies the returned ID
// token, including the nonce binding. The raw serialized token comes
// back alongside the verified one so the caller can apply its own
// issuer trust checks.
func (rp *RelyingParty) Exchange(ctx context.Context, code string, state AuthState) (string, *gooidc.IDToken, error) {
	oauth2Token, err := rp.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", state.CodeVerifier))
	if err != nil {
		return "", nil, fmt.Errorf("federation token exchange failed: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return "", nil, fmt.Errorf("no id_token in federation token response")
	}

	idToken, err := rp.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", nil, fmt.Errorf("federation id_token verification failed: %w", err)
	}
	if idToken.Nonce != state.Nonce {
		return "", nil, fmt.Errorf("federation id_token nonce mismatch")
	}
	return rawIDToken, idToken, nil
}

func randomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func codeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
