package protocol

import (
	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token"
)

// TokenRequest composes a grant with the optional scope, assertions and
// client identification presented at the token endpoint.
type TokenRequest struct {
	Grant                 AuthorizationGrant
	Scope                 oidc.Scope // zero for authorization_code / refresh_token grants
	SolutionUserAssertion *token.SolutionUserAssertion
	ClientAssertion       *token.ClientAssertion
	ClientID              oidc.ClientID
	CorrelationID         oidc.CorrelationID
}

// EffectiveClientID is the client id parameter, or, failing that, the client
// assertion's issuer.
func (r *TokenRequest) EffectiveClientID() oidc.ClientID {
	if r.ClientID != "" {
		return r.ClientID
	}
	if r.ClientAssertion != nil {
		return oidc.ClientID(r.ClientAssertion.Issuer())
	}
	return ""
}

// ParseTokenRequest parses and cross-validates the token endpoint
// parameters.
//
// Scope is ignored, not rejected, for the authorization_code and
// refresh_token grants: it was fixed earlier in the flow and a stale copy
// here must not override it.
func ParseTokenRequest(req *httpmsg.Request) (*TokenRequest, *oidc.ErrorObject) {
	grant, eo := parseGrant(req)
	if eo != nil {
		return nil, eo
	}
	grantType := grant.Type()

	var scope oidc.Scope
	scopeFixedByFlow := grantType == oidc.GrantTypeAuthorizationCode || grantType == oidc.GrantTypeRefreshToken
	if !scopeFixedByFlow {
		var err error
		scope, err = oidc.ParseScope(req.Param(ParamScope))
		if err != nil {
			return nil, oidc.ErrInvalidScope("%s", err)
		}
		if scope.Contains(oidc.ScopeOfflineAccess) &&
			(grantType == oidc.GrantTypeClientCredentials || grantType == oidc.GrantTypeSolutionUserCredentials) {
			return nil, oidc.ErrInvalidScope("offline_access scope is not allowed for the %s grant", grantType)
		}
	}

	var solutionUserAssertion *token.SolutionUserAssertion
	if req.HasParam(ParamSolutionUserAssertion) {
		var err error
		solutionUserAssertion, err = token.ParseSolutionUserAssertion(req.Param(ParamSolutionUserAssertion))
		if err != nil {
			return nil, oidc.ErrInvalidClient("invalid solution_user_assertion parameter: %s", err)
		}
	}

	var clientAssertion *token.ClientAssertion
	if req.HasParam(ParamClientAssertion) {
		var err error
		clientAssertion, err = token.ParseClientAssertion(req.Param(ParamClientAssertion))
		if err != nil {
			return nil, oidc.ErrInvalidClient("invalid client_assertion parameter: %s", err)
		}
	}

	if clientAssertion != nil && solutionUserAssertion != nil {
		return nil, oidc.ErrInvalidRequest("client_assertion and solution_user_assertion are mutually exclusive")
	}

	var clientID oidc.ClientID
	if req.HasParam(ParamClientID) {
		var err error
		clientID, err = oidc.NewClientID(req.Param(ParamClientID))
		if err != nil {
			return nil, oidc.ErrInvalidRequest("invalid client_id parameter: %s", err)
		}
		if clientAssertion != nil && string(clientAssertion.Issuer()) != string(clientID) {
			return nil, oidc.ErrInvalidClient("client_assertion issuer must match client_id")
		}
	}

	switch grantType {
	case oidc.GrantTypeSolutionUserCredentials:
		if solutionUserAssertion == nil {
			return nil, oidc.ErrInvalidRequest("solution_user_assertion parameter is required for the %s grant", grantType)
		}
	case oidc.GrantTypeClientCredentials, oidc.GrantTypeAuthorizationCode:
		if clientAssertion == nil {
			return nil, oidc.ErrInvalidClient("client_assertion parameter is required for the %s grant", grantType)
		}
	}

	var correlationID oidc.CorrelationID
	if req.HasParam(ParamCorrelationID) {
		var err error
		correlationID, err = oidc.NewCorrelationID(req.Param(ParamCorrelationID))
		if err != nil {
			return nil, oidc.ErrInvalidRequest("invalid correlation_id parameter: %s", err)
		}
	}

	return &TokenRequest{
		Grant:                 grant,
		Scope:                 scope,
		SolutionUserAssertion: solutionUserAssertion,
		ClientAssertion:       clientAssertion,
		ClientID:              clientID,
		CorrelationID:         correlationID,
	}, nil
}
