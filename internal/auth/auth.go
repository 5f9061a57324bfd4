package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tinylinker/internal/domain"
	"tinylinker/internal/shortcode"
	"tinylinker/internal/storage"
)

// ErrInvalidCredentials is returned for any login failure. Unknown email and
// wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

const tokenTTL = 2 * time.Hour

// Service registers accounts and issues bearer tokens for them.
type Service struct {
	repo   storage.AccountRepository
	secret []byte
	log    logrus.FieldLogger
}

func NewService(repo storage.AccountRepository, jwtSecret string, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:   repo,
		secret: []byte(jwtSecret),
		log:    logger.WithField("component", "auth"),
	}
}

// Register creates an account with a hashed password. Returns
// storage.ErrEmailTaken when the email is already registered.
func (s *Service) Register(ctx context.Context, name, email, password string) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := shortcode.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account id: %w", err)
	}

	account := &domain.Account{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.WithField("account_id", account.ID).Info("Account registered")
	return account, nil
}

// FindByCredentials looks up the account for an email and verifies the
// password against its hash.
func (s *Service) FindByCredentials(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := s.repo.FindAccountByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// IssueToken signs a short-lived HS256 token for the account.
func (s *Service) IssueToken(account *domain.Account) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   account.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns the account id it was issued for.
func (s *Service) ParseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
