package protocol

import (
	"net/url"

	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token"
)

// AuthenticationRequest is a parsed, cross-field-validated authorization
// endpoint request.
type AuthenticationRequest struct {
	ResponseType    oidc.ResponseType
	ResponseMode    oidc.ResponseMode
	ClientID        oidc.ClientID
	RedirectURI     *url.URL
	Scope           oidc.Scope
	State           oidc.State
	Nonce           oidc.Nonce
	ClientAssertion *token.ClientAssertion // optional
	CorrelationID   oidc.CorrelationID     // optional
}

// AuthnRequestError is a parse failure that still carries whatever fields
// were recovered before the failure, so the caller can render a
// redirect-shaped error response when the protocol allows one.
type AuthnRequestError struct {
	ErrorObject  *oidc.ErrorObject
	ClientID     oidc.ClientID
	RedirectURI  *url.URL
	ResponseMode oidc.ResponseMode
	State        oidc.State
}

func (e *AuthnRequestError) Error() string {
	return e.ErrorObject.Error()
}

// CanRedirect reports whether enough of the request was recovered to send
// the error back to the client's redirect URI.
func (e *AuthnRequestError) CanRedirect() bool {
	return e.RedirectURI != nil && e.ResponseMode != ""
}

// ParseAuthenticationRequest parses and validates the authorization endpoint
// parameters. The redirect context fields (client id, redirect URI, response
// mode, state) are parsed first so later failures can still be answered with
// a redirect.
func ParseAuthenticationRequest(req *httpmsg.Request) (*AuthenticationRequest, *AuthnRequestError) {
	reqErr := &AuthnRequestError{}
	fail := func(eo *oidc.ErrorObject) (*AuthenticationRequest, *AuthnRequestError) {
		reqErr.ErrorObject = eo
		return nil, reqErr
	}

	clientID, err := oidc.NewClientID(req.Param(ParamClientID))
	if err != nil {
		return fail(oidc.ErrInvalidRequest("invalid client_id parameter: %s", err))
	}
	reqErr.ClientID = clientID

	redirectURI, err := url.Parse(req.Param(ParamRedirectURI))
	if err != nil || !redirectURI.IsAbs() {
		return fail(oidc.ErrInvalidRequest("invalid redirect_uri parameter"))
	}
	reqErr.RedirectURI = redirectURI

	var state oidc.State
	if req.HasParam(ParamState) {
		state, err = oidc.NewState(req.Param(ParamState))
		if err != nil {
			return fail(oidc.ErrInvalidRequest("invalid state parameter: %s", err))
		}
		reqErr.State = state
	}

	responseType, err := oidc.ParseResponseType(req.Param(ParamResponseType))
	if err != nil {
		return fail(oidc.ErrUnsupportedResponseType("%s", err))
	}

	responseMode, eo := resolveResponseMode(req.Param(ParamResponseMode), responseType)
	if eo != nil {
		return fail(eo)
	}
	reqErr.ResponseMode = responseMode

	scope, err := oidc.ParseScope(req.Param(ParamScope))
	if err != nil {
		return fail(oidc.ErrInvalidScope("%s", err))
	}
	if responseType.IsImplicitFlow() && scope.Contains(oidc.ScopeOfflineAccess) {
		return fail(oidc.ErrInvalidScope("offline_access scope is not allowed for the implicit flow"))
	}

	var nonce oidc.Nonce
	if req.HasParam(ParamNonce) {
		nonce, err = oidc.NewNonce(req.Param(ParamNonce))
		if err != nil {
			return fail(oidc.ErrInvalidRequest("invalid nonce parameter: %s", err))
		}
	} else if responseType.IsImplicitFlow() {
		return fail(oidc.ErrInvalidRequest("nonce parameter is required for the implicit flow"))
	}

	var clientAssertion *token.ClientAssertion
	if req.HasParam(ParamClientAssertion) {
		clientAssertion, err = token.ParseClientAssertion(req.Param(ParamClientAssertion))
		if err != nil {
			return fail(oidc.ErrInvalidClient("invalid client_assertion parameter: %s", err))
		}
		if string(clientAssertion.Issuer()) != string(clientID) {
			return fail(oidc.ErrInvalidClient("client_assertion issuer must match client_id"))
		}
	}

	var correlationID oidc.CorrelationID
	if req.HasParam(ParamCorrelationID) {
		correlationID, err = oidc.NewCorrelationID(req.Param(ParamCorrelationID))
		if err != nil {
			return fail(oidc.ErrInvalidRequest("invalid correlation_id parameter: %s", err))
		}
	}

	return &AuthenticationRequest{
		ResponseType:    responseType,
		ResponseMode:    responseMode,
		ClientID:        clientID,
		RedirectURI:     redirectURI,
		Scope:           scope,
		State:           state,
		Nonce:           nonce,
		ClientAssertion: clientAssertion,
		CorrelationID:   correlationID,
	}, nil
}

// resolveResponseMode applies the defaults and forbidden combinations:
// query is forbidden for the implicit flow (tokens would land in server
// logs), fragment is forbidden for the code flow.
func resolveResponseMode(param string, responseType oidc.ResponseType) (oidc.ResponseMode, *oidc.ErrorObject) {
	var responseMode oidc.ResponseMode
	if param == "" {
		if responseType.IsImplicitFlow() {
			responseMode = oidc.ResponseModeFragment
		} else {
			responseMode = oidc.ResponseModeQuery
		}
		return responseMode, nil
	}

	responseMode, err := oidc.ParseResponseMode(param)
	if err != nil {
		return "", oidc.ErrInvalidRequest("%s", err)
	}
	if responseType.IsImplicitFlow() && responseMode == oidc.ResponseModeQuery {
		return "", oidc.ErrInvalidRequest("response_mode=query is not allowed for the implicit flow")
	}
	if responseType.IsAuthorizationCodeFlow() && responseMode == oidc.ResponseModeFragment {
		return "", oidc.ErrInvalidRequest("response_mode=fragment is not allowed for the authorization code flow")
	}
	return responseMode, nil
}
