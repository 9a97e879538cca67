package auth

import (
	"fmt"
	"time"

	"gigchat/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// jwtKey is the secret used to sign tokens.
// In a production environment, this should be loaded from an environment variable or a secret manager.
var jwtKey = []byte("my_strong_and_long_secret_key_2026")

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for a specific user.
func GenerateToken(userID uuid.UUID, tokenDuration time.Duration) (string, error) {
	expirationTime := time.Now().Add(tokenDuration)

	claims := &CustomClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "gigchat",
		},
	}

	// HS256: HMAC with SHA256, symmetric signing with the server secret.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// VerifyToken parses and validates the signature and expiration of a JWT
// string, and returns the verified user identity.
func VerifyToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", errors.ErrUnauthorized, jwt.ErrSignatureInvalid)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	}
	return userID, nil
}
