package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/shelfwise/shelfwise-server/internal/id"
)

const (
	tokenIssuer   = "shelfwise-server"
	tokenAudience = "shelfwise-ingest"
)

// TokenService handles PASETO token generation and verification.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
}

// NewTokenService creates a token service from a raw 32-byte key.
func NewTokenService(key []byte, accessDuration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey:        symmetricKey,
		accessTokenDuration: accessDuration,
	}, nil
}

// IssuePublisherToken creates a token that lets the bearer submit batches for publisherID.
func (s *TokenService) IssuePublisherToken(publisherID int64) (string, error) {
	if publisherID <= 0 {
		return "", errors.New("publisher ID must be positive")
	}
	return s.issue(RolePublisher, "publisher:"+strconv.FormatInt(publisherID, 10), publisherID)
}

// IssueAdminToken creates an admin token.
func (s *TokenService) IssueAdminToken(subject string) (string, error) {
	return s.issue(RoleAdmin, "admin:"+subject, 0)
}

func (s *TokenService) issue(role Role, subject string, publisherID int64) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(subject)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.accessTokenDuration))

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("role", role)
	if publisherID > 0 {
		//nolint:errcheck // Token.Set only errors on invalid types, which we control
		_ = token.Set("publisher_id", publisherID)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyAccessToken verifies and parses a PASETO access token.
// Returns the claims if valid, or an error if they're invalid or expired.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	switch claims.Role {
	case RoleAdmin:
	case RolePublisher:
		if claims.PublisherID <= 0 {
			return nil, errors.New("invalid token: publisher token without publisher ID")
		}
	default:
		return nil, fmt.Errorf("invalid token: unknown role %q", claims.Role)
	}

	return &claims, nil
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
