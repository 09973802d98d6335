package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AgentClaims identifies a support agent acting for one business.
type AgentClaims struct {
	AgentID    string
	BusinessID string
	ExpiresAt  time.Time
}

type agentJWTClaims struct {
	AgentID    string `json:"agent_id"`
	BusinessID string `json:"business_id"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 agent tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *Signer) Sign(agentID, businessID string) (string, error) {
	if agentID == "" || businessID == "" {
		return "", errors.New("agent and business ids are required")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, agentJWTClaims{
		AgentID:    agentID,
		BusinessID: businessID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

func (s *Signer) Parse(raw string) (AgentClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &agentJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return AgentClaims{}, err
	}
	claims, ok := parsed.Claims.(*agentJWTClaims)
	if !ok || !parsed.Valid {
		return AgentClaims{}, errors.New("invalid token claims")
	}
	if claims.AgentID == "" || claims.BusinessID == "" {
		return AgentClaims{}, errors.New("token is missing agent or business id")
	}
	out := AgentClaims{AgentID: claims.AgentID, BusinessID: claims.BusinessID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
