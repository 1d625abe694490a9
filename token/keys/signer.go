package keys

import (
	"crypto/rsa"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Sign produces a compact RS256 JWS over the claim set. The algorithm is
// fixed: the server never signs with anything other than RS256.
func Sign(claims jwt.MapClaims, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", errors.New("signing key is nil")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signedToken, nil
}

// VerifyRS256 checks the compact JWS signature against the candidate public
// key. The parser is restricted to RS256, so a token whose header advertises
// any other algorithm is rejected before signature verification runs.
func VerifyRS256(serialized string, key *rsa.PublicKey) error {
	if key == nil {
		return errors.New("verification key is nil")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{RS256}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.Parse(serialized, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return errors.Wrap(err, "signature verification failed")
	}
	return nil
}
