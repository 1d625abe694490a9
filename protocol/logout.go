package protocol

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token"
)

// LogoutRequest is a parsed end-session request. The client id is recovered
// from the ID token hint's single audience entry.
type LogoutRequest struct {
	IDTokenHint           *token.IDToken
	ClientID              oidc.ClientID
	PostLogoutRedirectURI *url.URL
	State                 oidc.State
	ClientAssertion       *token.ClientAssertion // optional
	CorrelationID         oidc.CorrelationID     // optional
}

// LogoutRequestError carries the recovered redirect context so the caller
// can still answer with a redirect-shaped error.
type LogoutRequestError struct {
	ErrorObject *oidc.ErrorObject
	RedirectURI *url.URL
	State       oidc.State
}

func (e *LogoutRequestError) Error() string {
	return e.ErrorObject.Error()
}

// CanRedirect reports whether the post-logout redirect URI was recovered.
func (e *LogoutRequestError) CanRedirect() bool {
	return e.RedirectURI != nil
}

// ParseLogoutRequest parses and validates the end-session parameters.
func ParseLogoutRequest(req *httpmsg.Request) (*LogoutRequest, *LogoutRequestError) {
	reqErr := &LogoutRequestError{}
	fail := func(eo *oidc.ErrorObject) (*LogoutRequest, *LogoutRequestError) {
		reqErr.ErrorObject = eo
		return nil, reqErr
	}

	redirectURI, err := url.Parse(req.Param(ParamPostLogoutRedirectURI))
	if err != nil || !redirectURI.IsAbs() {
		return fail(oidc.ErrInvalidRequest("invalid post_logout_redirect_uri parameter"))
	}
	reqErr.RedirectURI = redirectURI

	state, err := oidc.NewState(req.Param(ParamState))
	if err != nil {
		return fail(oidc.ErrInvalidRequest("invalid state parameter: %s", err))
	}
	reqErr.State = state

	idTokenHint, err := token.ParseIDToken(req.Param(ParamIDTokenHint))
	if err != nil {
		return fail(oidc.ErrInvalidRequest("invalid id_token_hint parameter: %s", err))
	}
	audience := idTokenHint.Audience()
	if len(audience) != 1 {
		return fail(oidc.ErrInvalidRequest("id_token_hint must have exactly one audience entry"))
	}
	clientID := oidc.ClientID(audience[0])

	var clientAssertion *token.ClientAssertion
	if req.HasParam(ParamClientAssertion) {
		clientAssertion, err = token.ParseClientAssertion(req.Param(ParamClientAssertion))
		if err != nil {
			return fail(oidc.ErrInvalidClient("invalid client_assertion parameter: %s", err))
		}
		if string(clientAssertion.Issuer()) != string(clientID) {
			return fail(oidc.ErrInvalidClient("client_assertion issuer must match the id_token_hint audience"))
		}
	}

	var correlationID oidc.CorrelationID
	if req.HasParam(ParamCorrelationID) {
		correlationID, err = oidc.NewCorrelationID(req.Param(ParamCorrelationID))
		if err != nil {
			return fail(oidc.ErrInvalidRequest("invalid correlation_id parameter: %s", err))
		}
	}

	return &LogoutRequest{
		IDTokenHint:           idTokenHint,
		ClientID:              clientID,
		PostLogoutRedirectURI: redirectURI,
		State:                 state,
		ClientAssertion:       clientAssertion,
		CorrelationID:         correlationID,
	}, nil
}

var logoutPageTemplate = template.Must(template.New("logoutPage").Parse(
	`<html>
<head>
<script type="text/javascript">
    var postLogoutRedirectUriWithState = "{{.RedirectTarget}}";
    window.onload = function() {
        document.location = postLogoutRedirectUriWithState;
    }
</script>
</head>
<body>
{{- range .LogoutURIs}}
<iframe src="{{.}}" style="display:none"></iframe>
{{- end}}
</body>
</html>`))

// LogoutSuccessResponse renders the single-logout page: a same-origin
// redirect script to the post-logout redirect URI plus one hidden iframe per
// participating client's logout URI (with the session id appended), fanning
// the logout out to every client of the session.
type LogoutSuccessResponse struct {
	RedirectTarget *url.URL
	State          oidc.State
	SessionID      oidc.SessionID // required whenever LogoutURIs is non-empty
	LogoutURIs     []*url.URL
}

// Response encodes the logout page.
func (r *LogoutSuccessResponse) Response() (*httpmsg.Response, error) {
	if len(r.LogoutURIs) > 0 && r.SessionID == "" {
		return nil, fmt.Errorf("session id is required for single logout fan-out")
	}

	target := *r.RedirectTarget
	if r.State != "" {
		query := target.Query()
		query.Set(ParamState, string(r.State))
		target.RawQuery = query.Encode()
	}

	logoutURIs := make([]string, 0, len(r.LogoutURIs))
	for _, u := range r.LogoutURIs {
		c := *u
		query := c.Query()
		query.Set(ParamSessionID, string(r.SessionID))
		c.RawQuery = query.Encode()
		logoutURIs = append(logoutURIs, c.String())
	}

	var buf bytes.Buffer
	err := logoutPageTemplate.Execute(&buf, struct {
		RedirectTarget string
		LogoutURIs     []string
	}{RedirectTarget: target.String(), LogoutURIs: logoutURIs})
	if err != nil {
		return nil, fmt.Errorf("rendering logout page: %w", err)
	}
	return httpmsg.NewHTMLResponse(http.StatusOK, buf.String()), nil
}

// LogoutErrorResponse redirects the error back to the post-logout redirect
// URI with error, error_description and state query parameters.
type LogoutErrorResponse struct {
	RedirectURI *url.URL
	State       oidc.State
	ErrorObject *oidc.ErrorObject
}

// Response encodes the error redirect.
func (r *LogoutErrorResponse) Response() (*httpmsg.Response, error) {
	target := *r.RedirectURI
	query := target.Query()
	for name, values := range ErrorObjectToParams(r.ErrorObject) {
		query.Set(name, values[0])
	}
	if r.State != "" {
		query.Set(ParamState, string(r.State))
	}
	target.RawQuery = query.Encode()
	return httpmsg.NewRedirectResponse(&target), nil
}
