package claims

import (
	"crypto/rsa"
	"encoding/json"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/verisso/go-oidc-idp/oidc"
)

// Holder-of-key is encoded as an embedded single-key JWK Set under the hotk
// claim. Decoding is deliberately strict: exactly one key, RSA, RS256,
// use=sig. Anything else is rejected rather than coerced, so a token cannot
// smuggle in a key of a different kind.

const (
	hotkAlgorithm = "RS256"
	hotkUse       = "sig"
)

// SetHolderOfKey embeds the public key as a single-entry JWK Set.
func SetHolderOfKey(m jwt.MapClaims, key *rsa.PublicKey) error {
	if key == nil {
		return nil
	}
	set := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       key,
			Algorithm: hotkAlgorithm,
			Use:       hotkUse,
		}},
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	// Re-decode to plain JSON types so the claim set stays a jwt.MapClaims of
	// marshalable values.
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	m[KeyHolderOfKey] = obj
	return nil
}

// GetJWKSet extracts a JWK Set claim.
func GetJWKSet(m jwt.MapClaims, class oidc.TokenClass, key string) (*jose.JSONWebKeySet, error) {
	raw, ok := m[key]
	if !ok {
		return nil, newParseError(class, key, "is missing")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseError(class, key, "is not a JSON object")
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, newParseError(class, key, "is not a valid JWK set")
	}
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, newParseError(class, key, "is not a valid JWK set")
	}
	return &set, nil
}

// GetHolderOfKey extracts the hotk claim, enforcing the single RSA RS256
// signature key shape. Returns (nil, nil) when the claim is absent.
func GetHolderOfKey(m jwt.MapClaims, class oidc.TokenClass) (*rsa.PublicKey, error) {
	if _, ok := m[KeyHolderOfKey]; !ok {
		return nil, nil
	}
	set, err := GetJWKSet(m, class, KeyHolderOfKey)
	if err != nil {
		return nil, err
	}
	if len(set.Keys) != 1 {
		return nil, newParseError(class, KeyHolderOfKey, "must contain exactly one key")
	}
	jwk := set.Keys[0]
	if jwk.Algorithm != hotkAlgorithm {
		return nil, newParseError(class, KeyHolderOfKey, "key algorithm must be RS256")
	}
	if jwk.Use != hotkUse {
		return nil, newParseError(class, KeyHolderOfKey, "key use must be sig")
	}
	pub, ok := jwk.Key.(*rsa.PublicKey)
	if !ok {
		return nil, newParseError(class, KeyHolderOfKey, "key type must be RSA")
	}
	return pub, nil
}
