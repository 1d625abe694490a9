package protocol

import (
	"net/http"
	"net/url"

	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token"
)

// tokenResponseBody is the RFC 6749 token endpoint success shape.
type tokenResponseBody struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenSuccessResponse carries the issued tokens back to the client as JSON.
// token_type and expires_in are derived from the access token.
type TokenSuccessResponse struct {
	IDToken      *token.IDToken
	AccessToken  *token.AccessToken
	RefreshToken *token.RefreshToken // optional
}

// Response encodes the success as a JSON body.
func (r *TokenSuccessResponse) Response() (*httpmsg.Response, error) {
	body := tokenResponseBody{
		IDToken:     r.IDToken.Serialize(),
		AccessToken: r.AccessToken.Serialize(),
		TokenType:   string(r.AccessToken.TokenType()),
		ExpiresIn:   int64(r.AccessToken.Lifetime().Seconds()),
	}
	if r.RefreshToken != nil {
		body.RefreshToken = r.RefreshToken.Serialize()
	}
	resp, err := httpmsg.NewJSONResponse(http.StatusOK, body)
	if err != nil {
		return nil, err
	}
	resp.SetHeader("Cache-Control", "no-store")
	resp.SetHeader("Pragma", "no-cache")
	return resp, nil
}

// TokenErrorResponse renders a protocol error as the RFC 6749 JSON error
// body with the error's HTTP status.
type TokenErrorResponse struct {
	ErrorObject *oidc.ErrorObject
}

// Response encodes the error as a JSON body.
func (r *TokenErrorResponse) Response() (*httpmsg.Response, error) {
	resp, err := httpmsg.NewJSONResponse(r.ErrorObject.StatusCode, ErrorObjectToJSON(r.ErrorObject))
	if err != nil {
		return nil, err
	}
	resp.SetHeader("Cache-Control", "no-store")
	resp.SetHeader("Pragma", "no-cache")
	return resp, nil
}

// errorObjectBody is the wire shape of an error, shared by the JSON and
// query-parameter encodings.
type errorObjectBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ErrorObjectToJSON maps an ErrorObject to its JSON wire shape.
func ErrorObjectToJSON(e *oidc.ErrorObject) any {
	return errorObjectBody{
		Error:            string(e.Code),
		ErrorDescription: e.Description,
	}
}

// ErrorObjectToParams maps an ErrorObject to its query-parameter wire shape.
func ErrorObjectToParams(e *oidc.ErrorObject) url.Values {
	params := url.Values{}
	params.Set(ParamError, string(e.Code))
	params.Set(ParamErrorDescription, e.Description)
	return params
}

// ErrorObjectFromParams reconstructs an ErrorObject relayed through query
// parameters. The HTTP status is recovered from the error code.
func ErrorObjectFromParams(params url.Values) (*oidc.ErrorObject, error) {
	code, err := oidc.ParseErrorCode(params.Get(ParamError))
	if err != nil {
		return nil, err
	}
	return &oidc.ErrorObject{
		Code:        code,
		Description: params.Get(ParamErrorDescription),
		StatusCode:  statusForErrorCode(code),
	}, nil
}

func statusForErrorCode(code oidc.ErrorCode) int {
	switch code {
	case oidc.ErrorCodeInvalidClient:
		return http.StatusUnauthorized
	case oidc.ErrorCodeAccessDenied:
		return http.StatusForbidden
	case oidc.ErrorCodeServerError:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
