package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"btclotto/domain/entities"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const callerKey = "caller"

// IssueToken signs an HS256 identity token whose subject is the principal
func IssueToken(secret string, principal entities.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   principal.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an identity token and returns its principal
func ParseToken(secret, tokenString string) (entities.Principal, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	principal, err := entities.ParsePrincipal(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("invalid token subject: %w", err)
	}
	return principal, nil
}

// authMiddleware requires a valid bearer token and stores the caller principal
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		principal, err := ParseToken(secret, tokenString)
		if err != nil {
			log.WithError(err).Debug("Rejected identity token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}

		c.Set(callerKey, principal)
		c.Next()
	}
}

// caller returns the authenticated principal set by authMiddleware
func caller(c *gin.Context) (entities.Principal, error) {
	value, ok := c.Get(callerKey)
	if !ok {
		return "", errors.New("no authenticated caller")
	}
	principal, ok := value.(entities.Principal)
	if !ok {
		return "", errors.New("invalid caller in context")
	}
	return principal, nil
}
