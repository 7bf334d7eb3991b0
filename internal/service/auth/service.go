// Package auth implements registration, login and token issuance for local
// and federated identities.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lifedrop/donorhub/internal/config"
	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// UserRepository is the slice of the user store the service needs.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByFederatedIdentity(provider, federatedID string) (*models.User, error)
}

// RegisterInput is the canonical validated input for identity creation. The
// two creation paths share it: local registration fills Password, federated
// registration fills Provider and ProviderToken.
type RegisterInput struct {
	Email         string           `json:"email"`
	Name          string           `json:"name"`
	Password      string           `json:"password,omitempty"`
	Provider      string           `json:"provider,omitempty"`
	ProviderToken string           `json:"provider_token,omitempty"`
	BloodType     domain.BloodType `json:"blood_type"`
	IsDonor       bool             `json:"is_donor"`
	Longitude     float64          `json:"longitude"`
	Latitude      float64          `json:"latitude"`
}

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID  uint `json:"uid"`
	IsAdmin bool `json:"adm"`
	jwt.RegisteredClaims
}

// TokenPair is the login result.
type TokenPair struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

const minPasswordLength = 8

// Service handles registration, login and token verification.
type Service struct {
	userRepo   UserRepository
	verifier   ProviderVerifier
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	issuer     string
	log        *logger.Logger
}

// NewService creates an auth service from configuration. Federated tokens are
// verified against the providers' public endpoints.
func NewService(userRepo *repository.UserRepository, cfg *config.AuthConfig, log *logger.Logger) *Service {
	return newService(userRepo, cfg, NewHTTPVerifier(cfg), log)
}

// NewServiceWithInterfaces creates an auth service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(userRepo UserRepository, cfg *config.AuthConfig, verifier ProviderVerifier, log *logger.Logger) *Service {
	return newService(userRepo, cfg, verifier, log)
}

func newService(userRepo UserRepository, cfg *config.AuthConfig, verifier ProviderVerifier, log *logger.Logger) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:   userRepo,
		verifier:   verifier,
		secret:     []byte(cfg.JWTSecret),
		tokenTTL:   time.Duration(cfg.TokenTTL) * time.Minute,
		bcryptCost: cost,
		issuer:     cfg.Issuer,
		log:        log,
	}
}

// Register creates a local identity with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, domain.ErrInvalidInput)
	}

	if _, err := s.userRepo.GetByEmail(normalizeEmail(input.Email)); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", input.Email, domain.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := newUserFromInput(input)
	user.PasswordHash = string(hash)
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.log.Info().Uint("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	return user, nil
}

// RegisterFederated creates or fetches an identity backed by an external
// provider. The provider token is verified first and the federated subject ID
// comes from the verified token, never from the request. Repeat calls with
// the same provider identity return the existing record.
func (s *Service) RegisterFederated(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}
	if input.Provider != models.ProviderGoogle && input.Provider != models.ProviderFacebook {
		return nil, fmt.Errorf("unknown identity provider %q: %w", input.Provider, domain.ErrInvalidInput)
	}
	if input.ProviderToken == "" {
		return nil, fmt.Errorf("provider token is required: %w", domain.ErrInvalidInput)
	}

	identity, err := s.verifier.Verify(ctx, input.Provider, input.ProviderToken)
	if err != nil {
		return nil, err
	}

	if existing, err := s.userRepo.GetByFederatedIdentity(input.Provider, identity.FederatedID); err == nil {
		return existing, nil
	}
	if _, err := s.userRepo.GetByEmail(normalizeEmail(input.Email)); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", input.Email, domain.ErrConflict)
	}

	user := newUserFromInput(input)
	user.FederatedProvider = input.Provider
	user.FederatedID = identity.FederatedID
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", user.ID).
		Str("provider", input.Provider).
		Msg("Federated user registered")
	return user, nil
}

// Login verifies a local identity's password and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		// Same failure for a missing account and a bad password.
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account is deactivated: %w", domain.ErrUnauthorized)
	}
	if user.HasFederatedIdentity() {
		return nil, fmt.Errorf("account uses %s sign-in: %w", user.FederatedProvider, domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.issueToken(user)
}

// LoginFederated verifies a provider token, resolves the identity it was
// issued for and issues a local token.
func (s *Service) LoginFederated(ctx context.Context, provider, providerToken string) (*TokenPair, error) {
	identity, err := s.verifier.Verify(ctx, provider, providerToken)
	if err != nil {
		// Same failure for a bad token and an unknown identity.
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByFederatedIdentity(provider, identity.FederatedID)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account is deactivated: %w", domain.ErrUnauthorized)
	}
	return s.issueToken(user)
}

// VerifyToken parses and validates a token string and returns its claims.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}

func (s *Service) issueToken(user *models.User) (*TokenPair, error) {
	expiresAt := time.Now().Add(s.tokenTTL)
	claims := Claims{
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenPair{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

func newUserFromInput(input RegisterInput) *models.User {
	return &models.User{
		Email:     normalizeEmail(input.Email),
		Name:      strings.TrimSpace(input.Name),
		BloodType: input.BloodType,
		IsDonor:   input.IsDonor,
		IsActive:  true,
		Longitude: input.Longitude,
		Latitude:  input.Latitude,
		Level:     models.LevelBronze,
	}
}

func validateRegisterInput(input RegisterInput) error {
	email := normalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q: %w", input.Email, domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if !input.BloodType.IsValid() {
		return fmt.Errorf("unknown blood type %q: %w", input.BloodType, domain.ErrInvalidInput)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
