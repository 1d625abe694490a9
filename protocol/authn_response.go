package protocol

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token"
)

// AuthenticationSuccessResponse renders the authorization endpoint success:
// an authorization code (code flow) or tokens (implicit flow), delivered to
// the redirect URI in the encoding selected by the response mode.
//
// With AJAX set, redirect modes render the target URL as the HTML body
// instead of issuing a real 302, so script-driven clients can read the
// target without the browser following it.
type AuthenticationSuccessResponse struct {
	ResponseMode oidc.ResponseMode
	RedirectURI  *url.URL
	State        oidc.State
	AJAX         bool

	Code        oidc.AuthorizationCode // code flow
	IDToken     *token.IDToken         // implicit flow
	AccessToken *token.AccessToken     // implicit flow, response_type "id_token token"
}

func (r *AuthenticationSuccessResponse) params() url.Values {
	params := url.Values{}
	if r.Code != "" {
		params.Set(ParamCode, string(r.Code))
	}
	if r.IDToken != nil {
		params.Set(ParamIDToken, r.IDToken.Serialize())
	}
	if r.AccessToken != nil {
		params.Set(ParamAccessToken, r.AccessToken.Serialize())
		params.Set(ParamTokenType, string(r.AccessToken.TokenType()))
		params.Set(ParamExpiresIn, fmt.Sprintf("%d", int64(r.AccessToken.Lifetime().Seconds())))
	}
	if r.State != "" {
		params.Set(ParamState, string(r.State))
	}
	return params
}

// Response encodes the success into the transport envelope.
func (r *AuthenticationSuccessResponse) Response() (*httpmsg.Response, error) {
	return encodeAuthnResponse(r.ResponseMode, r.RedirectURI, r.params(), r.AJAX)
}

// AuthenticationErrorResponse delivers a protocol error back to the client's
// redirect URI using the same three encodings as the success response.
type AuthenticationErrorResponse struct {
	ResponseMode oidc.ResponseMode
	RedirectURI  *url.URL
	State        oidc.State
	ErrorObject  *oidc.ErrorObject
	AJAX         bool
}

func (r *AuthenticationErrorResponse) params() url.Values {
	params := ErrorObjectToParams(r.ErrorObject)
	if r.State != "" {
		params.Set(ParamState, string(r.State))
	}
	return params
}

// Response encodes the error into the transport envelope.
func (r *AuthenticationErrorResponse) Response() (*httpmsg.Response, error) {
	return encodeAuthnResponse(r.ResponseMode, r.RedirectURI, r.params(), r.AJAX)
}

func encodeAuthnResponse(mode oidc.ResponseMode, redirectURI *url.URL, params url.Values, ajax bool) (*httpmsg.Response, error) {
	if redirectURI == nil {
		return nil, fmt.Errorf("redirect URI is required")
	}
	switch mode {
	case oidc.ResponseModeQuery, oidc.ResponseModeFragment:
		target := *redirectURI
		if mode == oidc.ResponseModeQuery {
			query := target.Query()
			for name, values := range params {
				query.Set(name, values[0])
			}
			target.RawQuery = query.Encode()
		} else {
			fragment := params.Encode()
			decoded, err := url.PathUnescape(fragment)
			if err != nil {
				return nil, fmt.Errorf("failed to encode fragment parameters: %w", err)
			}
			// RawFragment keeps the query-encoded form; Fragment must hold
			// its decoded counterpart or url.URL discards the raw form and
			// re-escapes the percent signs when serializing.
			target.Fragment = decoded
			target.RawFragment = fragment
			target.ForceQuery = false
		}
		if ajax {
			return httpmsg.NewHTMLResponse(http.StatusOK, target.String()), nil
		}
		return httpmsg.NewRedirectResponse(&target), nil

	case oidc.ResponseModeFormPost:
		fields := make(map[string]string, len(params))
		for name, values := range params {
			fields[name] = values[0]
		}
		return httpmsg.NewFormPostResponse(redirectURI, fields)
	}
	return nil, fmt.Errorf("unsupported response_mode %q", mode)
}
