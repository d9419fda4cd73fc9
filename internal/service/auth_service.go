package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lunara/internal/apperr"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/security"
	"lunara/internal/validation"
)

var (
	ErrEmailTaken         = apperr.New(apperr.ErrConflict, "Email already registered")
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "Invalid email or password")
)

// AuthService handles parent authentication
type AuthService struct {
	db              *database.DB
	userRepo        *repository.UserRepository
	familyRepo      *repository.FamilyRepository
	sessionDuration time.Duration
	clock           Clock
	logger          *zap.SugaredLogger
}

// NewAuthService creates a new auth service
func NewAuthService(db *database.DB, sessionDuration time.Duration, clock Clock, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{
		db:              db,
		userRepo:        repository.NewUserRepository(db),
		familyRepo:      repository.NewFamilyRepository(db),
		sessionDuration: sessionDuration,
		clock:           clock,
		logger:          logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func familyNameFor(name string) string {
	return strings.TrimSpace(name) + "'s Family"
}

// Register creates a parent account together with the family they own
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *models.User
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		user, err = s.userRepo.WithTx(tx).CreateUser(ctx, normalizeEmail(email), hash, strings.TrimSpace(name))
		if err != nil {
			return err
		}
		return s.createOwnedFamily(ctx, tx, user.ID, familyNameFor(user.Name))
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Infow("parent registered", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) createOwnedFamily(ctx context.Context, tx *database.Tx, userID int64, name string) error {
	families := s.familyRepo.WithTx(tx)
	family, err := families.CreateFamily(ctx, name)
	if err != nil {
		return err
	}
	return families.AddMember(ctx, family.ID, userID, models.RoleOwner)
}

// Login verifies credentials and opens a new session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.HasPassword() || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// OAuthLogin signs in a parent through an external provider. An existing
// account with the same email is linked; otherwise a new account and family
// are created.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if subject == "" {
		return nil, nil, apperr.New(apperr.ErrUnauthorized, "Sign-in failed")
	}
	email = normalizeEmail(email)

	user, err := s.userRepo.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, err
	}

	if user == nil {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, nil, err
		}
		user, err = s.userRepo.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, nil, err
		}
		if user != nil {
			if err := s.userRepo.LinkOAuth(ctx, user.ID, provider, subject); err != nil {
				return nil, nil, err
			}
			s.logger.Infow("linked oauth identity", "user_id", user.ID, "provider", provider)
		} else {
			if strings.TrimSpace(name) == "" {
				name = strings.Split(email, "@")[0]
			}
			err = s.db.WithTx(ctx, func(tx *database.Tx) error {
				var err error
				user, err = s.userRepo.WithTx(tx).CreateOAuthUser(ctx, email, strings.TrimSpace(name), provider, subject)
				if err != nil {
					return err
				}
				return s.createOwnedFamily(ctx, tx, user.ID, familyNameFor(user.Name))
			})
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, nil, ErrEmailTaken
			}
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create oauth user: %w", err)
			}
			s.logger.Infow("parent registered", "user_id", user.ID, "provider", provider)
		}
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createSession(ctx context.Context, userID int64) (*models.Session, error) {
	expiresAt := s.clock.now().Add(s.sessionDuration)
	return s.userRepo.CreateSession(ctx, security.GenerateSessionID(), userID, expiresAt)
}

// ValidateSession returns the parent behind sessionID, or nil when the session
// is unknown or expired. Expired sessions are removed.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.userRepo.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}

	if s.clock.now().After(session.ExpiresAt) {
		if err := s.userRepo.DeleteSession(ctx, sessionID); err != nil {
			s.logger.Warnw("failed to delete expired session", "error", err)
		}
		return nil, nil
	}

	return s.userRepo.GetUserByID(ctx, session.UserID)
}

// Logout ends a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.userRepo.DeleteSession(ctx, sessionID)
}

// CleanupExpiredSessions removes every expired session
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.userRepo.DeleteExpiredSessions(ctx, s.clock.now())
}
