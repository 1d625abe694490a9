package protocol

import (
	"encoding/base64"
	"net/url"

	"github.com/verisso/go-oidc-idp/httpmsg"
	"github.com/verisso/go-oidc-idp/oidc"
	"github.com/verisso/go-oidc-idp/token"
)

// AuthorizationGrant is the closed union of credentials a token request can
// present, dispatched by the grant_type parameter.
type AuthorizationGrant interface {
	Type() oidc.GrantType

	// FormValues serializes the grant's parameter subset, for clients
	// assembling a token request body.
	FormValues() url.Values
}

type AuthorizationCodeGrant struct {
	Code        oidc.AuthorizationCode
	RedirectURI *url.URL
}

type PasswordGrant struct {
	Username string
	Password string
}

type SolutionUserCredentialsGrant struct{}

type ClientCredentialsGrant struct{}

// PersonUserCertificateGrant authenticates with the TLS client certificate;
// the certificate itself arrives through the transport envelope.
type PersonUserCertificateGrant struct{}

type GSSTicketGrant struct {
	ContextID string
	Ticket    []byte // opaque, base64-encoded on the wire
}

type SecurIDGrant struct {
	Username  string
	Passcode  string
	SessionID []byte // opaque, base64-encoded on the wire; empty on first leg
}

type RefreshTokenGrant struct {
	RefreshToken *token.RefreshToken
}

func (AuthorizationCodeGrant) Type() oidc.GrantType { return oidc.GrantTypeAuthorizationCode }

func (PasswordGrant) Type() oidc.GrantType { return oidc.GrantTypePassword }

func (SolutionUserCredentialsGrant) Type() oidc.GrantType {
	return oidc.GrantTypeSolutionUserCredentials
}

func (ClientCredentialsGrant) Type() oidc.GrantType { return oidc.GrantTypeClientCredentials }

func (PersonUserCertificateGrant) Type() oidc.GrantType { return oidc.GrantTypePersonUserCertificate }

func (GSSTicketGrant) Type() oidc.GrantType { return oidc.GrantTypeGSSTicket }

func (SecurIDGrant) Type() oidc.GrantType { return oidc.GrantTypeSecurID }

func (RefreshTokenGrant) Type() oidc.GrantType { return oidc.GrantTypeRefreshToken }

func (g AuthorizationCodeGrant) FormValues() url.Values {
	values := url.Values{}
	values.Set(ParamGrantType, string(g.Type()))
	values.Set(ParamCode, string(g.Code))
	if g.RedirectURI != nil {
		values.Set(ParamRedirectURI, g.RedirectURI.String())
	}
	return values
}

func (g PasswordGrant) FormValues() url.Values {
	values := url.Values{}
	values.Set(ParamGrantType, string(g.Type()))
	values.Set(ParamUsername, g.Username)
	values.Set(ParamPassword, g.Password)
	return values
}

func (g SolutionUserCredentialsGrant) FormValues() url.Values {
	values := url.Values{}
	values.Set(ParamGrantType, string(g.Type()))
	return values
}

func (g ClientCredentialsGrant) FormValues() url.Values {
	values := url.Values{}
	values.Set(ParamGrantType, string(g.Type()))
	return values
}

func (g PersonUserCertificateGrant) FormValues() url.Values {
	values := url.Values{}
	values.Set(ParamGrantType, string(g.Type()))
	return values
}

func (g GSSTicketGrant) FormValues() url.Values {
	values := url.Values{}
	values.Set(ParamGrantType, string(g.Type()))
	values.Set(ParamContextID, g.ContextID)
	values.Set(ParamGSSTicket, base64.StdEncoding.EncodeToString(g.Ticket))
	return values
}

func (g SecurIDGrant) FormValues() url.Values {
	values := url.Values{}
	values.Set(ParamGrantType, string(g.Type()))
	values.Set(ParamUsername, g.Username)
	values.Set(ParamPasscode, g.Passcode)
	if len(g.SessionID) > 0 {
		values.Set(ParamSecurIDSessionID, base64.StdEncoding.EncodeToString(g.SessionID))
	}
	return values
}

func (g RefreshTokenGrant) FormValues() url.Values {
	values := url.Values{}
	values.Set(ParamGrantType, string(g.Type()))
	values.Set(ParamRefreshToken, g.RefreshToken.Serialize())
	return values
}

// parseGrant dispatches on grant_type and parses the variant's parameter
// subset.
func parseGrant(req *httpmsg.Request) (AuthorizationGrant, *oidc.ErrorObject) {
	grantType, err := oidc.ParseGrantType(req.Param(ParamGrantType))
	if err != nil {
		return nil, oidc.ErrUnsupportedGrantType("%s", err)
	}

	switch grantType {
	case oidc.GrantTypeAuthorizationCode:
		code, err := oidc.NewAuthorizationCode(req.Param(ParamCode))
		if err != nil {
			return nil, oidc.ErrInvalidRequest("invalid code parameter: %s", err)
		}
		redirectURI, err := url.Parse(req.Param(ParamRedirectURI))
		if err != nil || !redirectURI.IsAbs() {
			return nil, oidc.ErrInvalidRequest("invalid redirect_uri parameter")
		}
		return AuthorizationCodeGrant{Code: code, RedirectURI: redirectURI}, nil

	case oidc.GrantTypePassword:
		username := req.Param(ParamUsername)
		password := req.Param(ParamPassword)
		if username == "" || password == "" {
			return nil, oidc.ErrInvalidRequest("username and password parameters are required")
		}
		return PasswordGrant{Username: username, Password: password}, nil

	case oidc.GrantTypeSolutionUserCredentials:
		return SolutionUserCredentialsGrant{}, nil

	case oidc.GrantTypeClientCredentials:
		return ClientCredentialsGrant{}, nil

	case oidc.GrantTypePersonUserCertificate:
		return PersonUserCertificateGrant{}, nil

	case oidc.GrantTypeGSSTicket:
		contextID := req.Param(ParamContextID)
		if contextID == "" {
			return nil, oidc.ErrInvalidRequest("context_id parameter is required")
		}
		ticket, err := base64.StdEncoding.DecodeString(req.Param(ParamGSSTicket))
		if err != nil || len(ticket) == 0 {
			return nil, oidc.ErrInvalidRequest("gss_ticket parameter must be non-empty base64")
		}
		return GSSTicketGrant{ContextID: contextID, Ticket: ticket}, nil

	case oidc.GrantTypeSecurID:
		username := req.Param(ParamUsername)
		passcode := req.Param(ParamPasscode)
		if username == "" || passcode == "" {
			return nil, oidc.ErrInvalidRequest("username and passcode parameters are required")
		}
		var sessionID []byte
		if req.HasParam(ParamSecurIDSessionID) {
			sessionID, err = base64.StdEncoding.DecodeString(req.Param(ParamSecurIDSessionID))
			if err != nil {
				return nil, oidc.ErrInvalidRequest("session_id parameter must be base64")
			}
		}
		return SecurIDGrant{Username: username, Passcode: passcode, SessionID: sessionID}, nil

	case oidc.GrantTypeRefreshToken:
		refreshToken, err := token.ParseRefreshToken(req.Param(ParamRefreshToken))
		if err != nil {
			return nil, oidc.ErrInvalidGrant("invalid refresh_token parameter: %s", err)
		}
		return RefreshTokenGrant{RefreshToken: refreshToken}, nil
	}

	return nil, oidc.ErrUnsupportedGrantType("unsupported grant_type %q", grantType)
}
