package util

import (
	"bizbox_backend/internal/model"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

type Claims struct {
	UserID         uint           `json:"user_id"`
	Role           model.UserRole `json:"role"`
	Email          string         `json:"email"`
	OrganizationID uint           `json:"organization_id,omitempty"`
	TokenType      string         `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is issued on login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func GenerateJWT(user *model.User, secret string, expiration time.Duration) (string, error) {
	return generateToken(user, secret, expiration, TokenAccess)
}

func GenerateTokenPair(user *model.User, secret string, accessTTL, refreshTTL time.Duration) (*TokenPair, error) {
	access, err := generateToken(user, secret, accessTTL, TokenAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := generateToken(user, secret, refreshTTL, TokenRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func generateToken(user *model.User, secret string, expiration time.Duration, tokenType string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:         user.ID,
		Role:           user.Role,
		Email:          user.Email,
		OrganizationID: user.OrgID(),
		TokenType:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// ParseAccessToken rejects refresh tokens presented as bearer credentials.
func ParseAccessToken(tokenString, secret string) (*Claims, error) {
	claims, err := ParseJWT(tokenString, secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenAccess {
		return nil, errors.New("not an access token")
	}
	return claims, nil
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get("user")
	if !exists {
		return nil
	}

	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
