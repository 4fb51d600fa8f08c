// Package testutil holds helpers shared by tests and local tooling.
package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TestToken returns an HS256-signed JWT accepted by the stub server's
// shared-secret auth mode.
func TestToken(userID string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString(secret)
}
