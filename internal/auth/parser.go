package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nurpe/lab-review/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

// Parse validates an HS256 access token and returns the caller it names.
func (p *Parser) Parse(token string) (model.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role, err := parseRole(claims.Role)
	if err != nil {
		return model.Principal{}, err
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	return model.Principal{
		UserID: userID,
		Role:   role,
		Token:  token,
	}, nil
}

func parseRole(raw string) (model.Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "director":
		return model.RoleDirector, nil
	case "laboratory", "lab":
		return model.RoleLaboratory, nil
	case "admin":
		return model.RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidToken, raw)
	}
}
