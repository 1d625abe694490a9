package oidc

import (
	"fmt"
	"strings"
)

// TokenClass discriminates the token kinds issued or accepted by the server.
// Every signed token carries its class in the token_class claim, and a parser
// for one class must reject a token carrying another.
type TokenClass string

const (
	TokenClassIDToken               TokenClass = "id_token"
	TokenClassAccessToken           TokenClass = "access_token"
	TokenClassRefreshToken          TokenClass = "refresh_token"
	TokenClassClientAssertion       TokenClass = "client_assertion"
	TokenClassPersonUserAssertion   TokenClass = "person_user_assertion"
	TokenClassSolutionUserAssertion TokenClass = "solution_user_assertion"
	TokenClassFederationIDToken     TokenClass = "federation_id_token"
	TokenClassFederationAccessToken TokenClass = "federation_access_token"
)

// ParseTokenClass maps a token_class claim value to a TokenClass.
func ParseTokenClass(s string) (TokenClass, error) {
	switch TokenClass(s) {
	case TokenClassIDToken, TokenClassAccessToken, TokenClassRefreshToken,
		TokenClassClientAssertion, TokenClassPersonUserAssertion, TokenClassSolutionUserAssertion,
		TokenClassFederationIDToken, TokenClassFederationAccessToken:
		return TokenClass(s), nil
	}
	return "", fmt.Errorf("unrecognized token_class %q", s)
}

func (c TokenClass) String() string { return string(c) }

// TokenType says how a token is presented: as a plain bearer credential or
// bound to a holder-of-key public key.
type TokenType string

const (
	TokenTypeBearer      TokenType = "Bearer"
	TokenTypeHolderOfKey TokenType = "hotk-pk"
)

// ParseTokenType maps a token_type claim value to a TokenType.
func ParseTokenType(s string) (TokenType, error) {
	switch TokenType(s) {
	case TokenTypeBearer, TokenTypeHolderOfKey:
		return TokenType(s), nil
	}
	return "", fmt.Errorf("unrecognized token_type %q", s)
}

func (t TokenType) String() string { return string(t) }

// GrantType selects the credential presented at the token endpoint.
type GrantType string

const (
	GrantTypeAuthorizationCode       GrantType = "authorization_code"
	GrantTypePassword                GrantType = "password"
	GrantTypeSolutionUserCredentials GrantType = "solution_user_credentials"
	GrantTypeClientCredentials       GrantType = "client_credentials"
	GrantTypePersonUserCertificate   GrantType = "person_user_certificate"
	GrantTypeGSSTicket               GrantType = "gss_ticket"
	GrantTypeSecurID                 GrantType = "securid"
	GrantTypeRefreshToken            GrantType = "refresh_token"
)

// ParseGrantType maps a grant_type parameter to a GrantType.
func ParseGrantType(s string) (GrantType, error) {
	switch GrantType(s) {
	case GrantTypeAuthorizationCode, GrantTypePassword, GrantTypeSolutionUserCredentials,
		GrantTypeClientCredentials, GrantTypePersonUserCertificate, GrantTypeGSSTicket,
		GrantTypeSecurID, GrantTypeRefreshToken:
		return GrantType(s), nil
	}
	return "", fmt.Errorf("unsupported grant_type %q", s)
}

func (g GrantType) String() string { return string(g) }

// ResponseTypeValue is a single entry of the space-delimited response_type
// parameter.
type ResponseTypeValue string

const (
	ResponseTypeValueCode    ResponseTypeValue = "code"
	ResponseTypeValueIDToken ResponseTypeValue = "id_token"
	ResponseTypeValueToken   ResponseTypeValue = "token"
)

// ResponseType is the set of requested response type values. Supported
// combinations are "code", "id_token" and "id_token token".
type ResponseType struct {
	values []ResponseTypeValue
}

// ParseResponseType parses the response_type parameter, rejecting
// unsupported combinations.
func ParseResponseType(s string) (ResponseType, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ResponseType{}, fmt.Errorf("response_type must not be empty")
	}
	rt := ResponseType{}
	seen := map[ResponseTypeValue]bool{}
	for _, field := range fields {
		v := ResponseTypeValue(field)
		switch v {
		case ResponseTypeValueCode, ResponseTypeValueIDToken, ResponseTypeValueToken:
		default:
			return ResponseType{}, fmt.Errorf("unsupported response_type value %q", field)
		}
		if seen[v] {
			return ResponseType{}, fmt.Errorf("duplicate response_type value %q", field)
		}
		seen[v] = true
		rt.values = append(rt.values, v)
	}
	switch {
	case seen[ResponseTypeValueCode] && len(rt.values) == 1:
	case seen[ResponseTypeValueIDToken] && !seen[ResponseTypeValueCode]:
	default:
		return ResponseType{}, fmt.Errorf("unsupported response_type combination %q", s)
	}
	return rt, nil
}

// Contains reports whether the response type includes the given value.
func (rt ResponseType) Contains(v ResponseTypeValue) bool {
	for _, rv := range rt.values {
		if rv == v {
			return true
		}
	}
	return false
}

// IsAuthorizationCodeFlow reports whether this is the plain code flow.
func (rt ResponseType) IsAuthorizationCodeFlow() bool {
	return len(rt.values) == 1 && rt.values[0] == ResponseTypeValueCode
}

// IsImplicitFlow reports whether tokens are returned directly from the
// authorization endpoint.
func (rt ResponseType) IsImplicitFlow() bool {
	return rt.Contains(ResponseTypeValueIDToken)
}

func (rt ResponseType) String() string {
	parts := make([]string, len(rt.values))
	for i, v := range rt.values {
		parts[i] = string(v)
	}
	return strings.Join(parts, " ")
}

// ResponseMode selects the wire encoding of the authorization response.
type ResponseMode string

const (
	ResponseModeQuery    ResponseMode = "query"
	ResponseModeFragment ResponseMode = "fragment"
	ResponseModeFormPost ResponseMode = "form_post"
)

// ParseResponseMode maps a response_mode parameter to a ResponseMode.
func ParseResponseMode(s string) (ResponseMode, error) {
	switch ResponseMode(s) {
	case ResponseModeQuery, ResponseModeFragment, ResponseModeFormPost:
		return ResponseMode(s), nil
	}
	return "", fmt.Errorf("unsupported response_mode %q", s)
}

func (m ResponseMode) String() string { return string(m) }
