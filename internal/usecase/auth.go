package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	"YoForex/internal/services/auth"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/google/uuid"
)

const badCredentials = "Incorrect email or password"

// AuthUsecase registers users and issues bearer tokens.
type AuthUsecase struct {
	users  domrepo.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenIssuer
	log    *applogger.Logger
	now    func() time.Time
}

func NewAuthUsecase(users domrepo.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, log *applogger.Logger) *AuthUsecase {
	return &AuthUsecase{users: users, hasher: hasher, tokens: tokens, log: log, now: time.Now}
}

func (u *AuthUsecase) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	hash, err := u.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := u.now().UTC()
	su := &models.StoredUser{
		User: models.User{
			ID:        uuid.NewString(),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			FullName:  strings.TrimSpace(req.FullName),
			Plan:      models.PlanFree,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}
	if err := u.users.Create(ctx, su); err != nil {
		if errors.Is(err, domrepo.ErrAlreadyExists) {
			return nil, xhttp.ConflictError("Email already registered").WithParam("field", "email")
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	u.log.Info("user registered", applogger.String("user_id", su.ID))
	return u.issue(&su.User)
}

// Login returns the same error for an unknown email and a wrong password.
func (u *AuthUsecase) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	su, err := u.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, xhttp.UnauthorizedError(badCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := u.hasher.Compare(su.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, xhttp.UnauthorizedError(badCredentials)
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !su.IsActive {
		return nil, xhttp.ForbiddenError("Account is disabled")
	}
	return u.issue(&su.User)
}

func (u *AuthUsecase) Me(ctx context.Context, userID string) (*models.User, error) {
	su, err := u.users.GetByID(ctx, userID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, xhttp.UnauthorizedError("Could not validate credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &su.User, nil
}

// Authenticate verifies a bearer token and returns its user id.
func (u *AuthUsecase) Authenticate(token string) (string, error) {
	claims, err := u.tokens.Parse(token)
	if err != nil {
		return "", xhttp.UnauthorizedError("Could not validate credentials").WithError(err)
	}
	return claims.Subject, nil
}

func (u *AuthUsecase) issue(user *models.User) (*models.AuthResponse, error) {
	tok, err := u.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token: models.Token{
			AccessToken: tok,
			TokenType:   "bearer",
			ExpiresIn:   int64(u.tokens.TTL().Seconds()),
		},
		User: user,
	}, nil
}
