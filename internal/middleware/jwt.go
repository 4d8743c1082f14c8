package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 72 * time.Hour

// Claims is the JWT payload accepted by the tracking API.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and checks HS256 tokens. A nil *Auth lets every request through.
type Auth struct {
	secret []byte
}

// NewAuth returns nil when secret is empty, disabling authentication.
func NewAuth(secret string) *Auth {
	if secret == "" {
		return nil
	}
	return &Auth{secret: []byte(secret)}
}

// GenerateToken signs a token for subject with the given role.
func (a *Auth) GenerateToken(subject, role string) (string, error) {
	if a == nil {
		return "", errors.New("middleware: authentication disabled")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken parses tokenStr and returns its claims.
func (a *Auth) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireAuth ensures a valid JWT is present, in the Authorization header or
// the "token" query parameter (browsers cannot set headers on WebSockets).
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.Next()
			return
		}
		if a.authenticate(c) {
			c.Next()
		}
	}
}

// RequireAuthWithRole ensures the JWT is valid and carries one of roles.
func (a *Auth) RequireAuthWithRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.Next()
			return
		}
		if !a.authenticate(c) {
			return
		}

		role := c.GetString("role")
		if !slices.Contains(roles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// authenticate validates the request token and stores its claims in the
// context, aborting the request when it is missing or invalid.
func (a *Auth) authenticate(c *gin.Context) bool {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
		return false
	}

	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}

	// Store claims in context for downstream handlers
	c.Set("subject", claims.Subject)
	c.Set("role", claims.Role)
	return true
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}
