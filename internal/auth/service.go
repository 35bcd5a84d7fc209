package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const riderTokenTTL = 24 * time.Hour

// Service issues and verifies rider session tokens. Account management lives
// outside the core; a token is the only identity it handles, and the group
// relay verifies join credentials through this same service.
type Service struct {
	secret []byte
}

type Claims struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// IssueRiderToken signs a session token carrying the rider's id and display
// name.
func (s *Service) IssueRiderToken(userID, nickname string) (string, error) {
	return s.signToken(userID, nickname, riderTokenTTL)
}

// VerifyToken parses a session token and returns its claims.
func (s *Service) VerifyToken(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("token invalid")
	}
	return *claims, nil
}

func (s *Service) signToken(userID, nickname string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:   userID,
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
