// Package protocol implements the endpoint message formats: authentication
// request/response, token request/response with its eight grant types,
// logout request/response, and the discovery documents. Parsers consume the
// transport-agnostic httpmsg envelope and fail fast with an ErrorObject
// naming the offending field.
package protocol

// Wire parameter names.
const (
	ParamResponseType  = "response_type"
	ParamResponseMode  = "response_mode"
	ParamClientID      = "client_id"
	ParamRedirectURI   = "redirect_uri"
	ParamScope         = "scope"
	ParamState         = "state"
	ParamNonce         = "nonce"
	ParamCorrelationID = "correlation_id"

	ParamGrantType             = "grant_type"
	ParamCode                  = "code"
	ParamUsername              = "username"
	ParamPassword              = "password"
	ParamPasscode              = "passcode"
	ParamSecurIDSessionID      = "session_id"
	ParamContextID             = "context_id"
	ParamGSSTicket             = "gss_ticket"
	ParamRefreshToken          = "refresh_token"
	ParamClientAssertion       = "client_assertion"
	ParamSolutionUserAssertion = "solution_user_assertion"

	ParamIDTokenHint           = "id_token_hint"
	ParamPostLogoutRedirectURI = "post_logout_redirect_uri"
	ParamSessionID             = "sid"

	ParamError            = "error"
	ParamErrorDescription = "error_description"

	ParamIDToken     = "id_token"
	ParamAccessToken = "access_token"
	ParamTokenType   = "token_type"
	ParamExpiresIn   = "expires_in"
)

// Endpoint paths, used by the discovery document and the server routes.
const (
	EndpointAuthorize = "/oauth2/authorize"
	EndpointToken     = "/oauth2/token"
	EndpointLogout    = "/oauth2/logout"
	EndpointJWKS      = "/oauth2/jwks"
	EndpointMetadata  = "/.well-known/openid-configuration"
)
