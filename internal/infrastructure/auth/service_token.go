package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/infrastructure/config"
)

// Scopes understood by internal routes
const (
	ScopeOrdersWrite = "orders:write"
	ScopeOrdersRead  = "orders:read"
	ScopeAll         = "*"
)

var (
	ErrServiceNotAllowed  = errors.New("service is not allowed")
	ErrServiceSecretUnset = errors.New("service secret is not configured")
)

// ServiceClaims are carried by X-Service-Token. Subject is the calling
// service name.
type ServiceClaims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Scopes    []string  `json:"scopes"`
}

// Service returns the calling service name
func (c *ServiceClaims) Service() string {
	return c.Subject
}

// HasScope reports whether the token grants scope. "*" grants everything and
// "orders:*" grants every orders scope.
func (c *ServiceClaims) HasScope(scope string) bool {
	resource, _, _ := strings.Cut(scope, ":")
	for _, s := range c.Scopes {
		if s == scope || s == ScopeAll || s == resource+":*" {
			return true
		}
	}
	return false
}

// TenantUUID returns the tenant the token is bound to, if any
func (c *ServiceClaims) TenantUUID() (uuid.UUID, bool) {
	if c.TenantID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.TenantID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// ServiceTokenService issues and verifies service-to-service tokens
type ServiceTokenService struct {
	secret  []byte
	allowed map[string]struct{}
	ttl     time.Duration
	issuer  string
}

// NewServiceTokenService creates a service token service
func NewServiceTokenService(cfg config.ServiceConfig, issuer string) *ServiceTokenService {
	allowed := make(map[string]struct{}, len(cfg.Allowed))
	for _, name := range cfg.Allowed {
		if name = strings.TrimSpace(name); name != "" {
			allowed[name] = struct{}{}
		}
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ServiceTokenService{
		secret:  []byte(cfg.Secret),
		allowed: allowed,
		ttl:     ttl,
		issuer:  issuer,
	}
}

// IssueInput describes a service token to mint
type IssueInput struct {
	Service  string
	TenantID *uuid.UUID
	Scopes   []string
	TTL      time.Duration
}

// Issue signs a token for an allowed service
func (s *ServiceTokenService) Issue(in IssueInput) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrServiceSecretUnset
	}
	if !s.isAllowed(in.Service) {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrServiceNotAllowed, in.Service)
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   in.Service,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TokenType: TokenTypeService,
		Scopes:    in.Scopes,
	}
	if in.TenantID != nil {
		claims.TenantID = in.TenantID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate verifies the token and that its service is still allowed
func (s *ServiceTokenService) Validate(tokenString string) (*ServiceClaims, error) {
	if len(s.secret) == 0 {
		return nil, ErrServiceSecretUnset
	}
	claims := &ServiceClaims{}
	var opts []jwt.ParserOption
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if err := parseHS256(tokenString, s.secret, claims, opts...); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeService {
		return nil, ErrInvalidTokenType
	}
	if !s.isAllowed(claims.Subject) {
		return nil, ErrServiceNotAllowed
	}
	if claims.TenantID != "" {
		if _, err := uuid.Parse(claims.TenantID); err != nil {
			return nil, ErrInvalidClaims
		}
	}
	return claims, nil
}

func (s *ServiceTokenService) isAllowed(service string) bool {
	_, ok := s.allowed[service]
	return ok
}
