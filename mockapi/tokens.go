// mockapi/tokens.go
package mockapi

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type idClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

const tokenIssuer = "spinwin-mock"

func (s *Server) issueToken(user User) (string, error) {
	now := s.clock.Now()
	claims := idClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return signed, nil
}

// parseToken returns the subject of a valid id token.
func (s *Server) parseToken(tokenString string) (*idClaims, error) {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}

	var claims idClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, keyFunc,
		jwt.WithIssuer(tokenIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &claims, nil
}

func tokenReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Malformed token"
	default:
		return "Token invalid"
	}
}
