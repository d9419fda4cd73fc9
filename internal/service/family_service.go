package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/credentials"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/security"
	"lunara/internal/validation"
)

// PIN lockout policy
const (
	MaxPinAttempts = 5
	PinLockout     = 15 * time.Minute
)

// DefaultAvatarColor is used when a kid is created without one
const DefaultAvatarColor = "#7C83FD"

var (
	ErrInvalidPIN = apperr.New(apperr.ErrUnauthorized, "Invalid kid or PIN")
	ErrPINLocked  = apperr.New(apperr.ErrLocked, "Too many attempts. Try again later.")
	ErrParentOnly = apperr.Unauthorized()
)

// FamilyOverview is everything a parent sees about one family
type FamilyOverview struct {
	Family  *models.Family        `json:"family"`
	Members []models.FamilyMember `json:"members"`
	Kids    []models.Kid          `json:"kids"`
}

// FamilyService handles families, kids and kid PINs
type FamilyService struct {
	db         *database.DB
	familyRepo *repository.FamilyRepository
	kidRepo    *repository.KidRepository
	clock      Clock
	logger     *zap.SugaredLogger
}

// NewFamilyService creates a new family service
func NewFamilyService(db *database.DB, clock Clock, logger *zap.SugaredLogger) *FamilyService {
	return &FamilyService{
		db:         db,
		familyRepo: repository.NewFamilyRepository(db),
		kidRepo:    repository.NewKidRepository(db),
		clock:      clock,
		logger:     logger,
	}
}

// CreateFamily creates a family owned by the acting parent
func (s *FamilyService) CreateFamily(ctx context.Context, mode access.Mode, name string) (*models.Family, error) {
	userID, ok := access.ParentID(mode)
	if !ok {
		return nil, ErrParentOnly
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	var family *models.Family
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		families := s.familyRepo.WithTx(tx)
		var err error
		if family, err = families.CreateFamily(ctx, strings.TrimSpace(name)); err != nil {
			return err
		}
		return families.AddMember(ctx, family.ID, userID, models.RoleOwner)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	return family, nil
}

// ListFamilies returns the acting parent's families
func (s *FamilyService) ListFamilies(ctx context.Context, mode access.Mode) ([]models.Family, error) {
	userID, ok := access.ParentID(mode)
	if !ok {
		return nil, ErrParentOnly
	}
	return s.familyRepo.GetUserFamilies(ctx, userID)
}

// Overview returns a family with its members and kids
func (s *FamilyService) Overview(ctx context.Context, mode access.Mode, familyID int64) (*FamilyOverview, error) {
	if !access.IsParent(mode) {
		return nil, ErrParentOnly
	}

	family, err := s.familyRepo.GetFamily(ctx, mode, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, apperr.Unauthorized()
	}

	members, err := s.familyRepo.GetMembers(ctx, mode, familyID)
	if err != nil {
		return nil, err
	}
	kids, err := s.kidRepo.GetFamilyKids(ctx, mode, familyID)
	if err != nil {
		return nil, err
	}
	return &FamilyOverview{Family: family, Members: members, Kids: kids}, nil
}

// RenameFamily changes a family's display name
func (s *FamilyService) RenameFamily(ctx context.Context, mode access.Mode, familyID int64, name string) error {
	if !access.IsParent(mode) {
		return ErrParentOnly
	}
	if err := validation.ValidateName(name); err != nil {
		return err
	}
	return scoped(s.familyRepo.UpdateFamilyName(ctx, mode, familyID, strings.TrimSpace(name)))
}

// ListKids returns every kid visible to mode
func (s *FamilyService) ListKids(ctx context.Context, mode access.Mode) ([]models.Kid, error) {
	return s.kidRepo.GetVisibleKids(ctx, mode)
}

// GetKid returns one kid visible to mode
func (s *FamilyService) GetKid(ctx context.Context, mode access.Mode, kidID int64) (*models.Kid, error) {
	kid, err := s.kidRepo.GetKid(ctx, mode, kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, apperr.Unauthorized()
	}
	return kid, nil
}

// CreateKid adds a kid to a family. When pin is empty a PIN is generated; the
// plain PIN is returned exactly once.
func (s *FamilyService) CreateKid(ctx context.Context, mode access.Mode, familyID int64, name, pin, color string) (*models.Kid, string, error) {
	if !access.IsParent(mode) {
		return nil, "", ErrParentOnly
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, "", err
	}
	if color == "" {
		color = DefaultAvatarColor
	}
	if err := validation.ValidateColor(color); err != nil {
		return nil, "", err
	}

	if pin == "" {
		generated, err := credentials.GenerateKidPIN()
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate PIN: %w", err)
		}
		pin = generated
	} else if err := validation.ValidatePIN(pin); err != nil {
		return nil, "", err
	}

	hash, err := security.HashPIN(pin)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash PIN: %w", err)
	}

	kid, err := s.kidRepo.CreateKid(ctx, mode, familyID, strings.TrimSpace(name), hash, color)
	if err := scoped(err); err != nil {
		return nil, "", err
	}

	s.logger.Infow("kid created", "kid_id", kid.ID, "family_id", familyID, "actor", mode.Actor())
	return kid, pin, nil
}

// SetKidPIN replaces a kid's PIN and clears any lockout
func (s *FamilyService) SetKidPIN(ctx context.Context, mode access.Mode, kidID int64, pin string) error {
	if !access.IsParent(mode) {
		return ErrParentOnly
	}
	if err := validation.ValidatePIN(pin); err != nil {
		return err
	}
	hash, err := security.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}
	return scoped(s.kidRepo.SetPinHash(ctx, mode, kidID, hash))
}

// UnlockKid clears a kid's PIN lockout. Used by operators.
func (s *FamilyService) UnlockKid(ctx context.Context, kidID int64) error {
	err := s.kidRepo.ResetPinFailures(ctx, kidID)
	if errors.Is(err, repository.ErrNoRows) {
		return apperr.New(apperr.ErrNotFound, "Kid not found")
	}
	return err
}

// VerifyKidPIN checks a PIN attempt against the kid's stored hash. Lockout
// state is consulted before any comparison.
func (s *FamilyService) VerifyKidPIN(ctx context.Context, kidID int64, pin string) (*models.Kid, error) {
	if err := validation.ValidatePIN(pin); err != nil {
		return nil, err
	}

	kid, err := s.kidRepo.GetKidForLogin(ctx, kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil || !kid.HasPin() {
		return nil, ErrInvalidPIN
	}

	now := s.clock.now()
	if kid.IsLocked(now) {
		return nil, ErrPINLocked
	}

	ok, err := security.VerifyPIN(pin, kid.PinHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify PIN for kid %d: %w", kid.ID, err)
	}

	if !ok {
		until := now.Add(PinLockout)
		locked, err := s.kidRepo.RecordPinFailure(ctx, kid.ID, MaxPinAttempts, until)
		if err != nil {
			return nil, err
		}
		if locked {
			s.logger.Warnw("kid PIN locked", "kid_id", kid.ID, "until", until)
			return nil, ErrPINLocked
		}
		return nil, ErrInvalidPIN
	}

	if kid.FailedPinAttempts > 0 || kid.PinLockedUntil != nil {
		if err := s.kidRepo.ResetPinFailures(ctx, kid.ID); err != nil {
			return nil, err
		}
		kid.FailedPinAttempts = 0
		kid.PinLockedUntil = nil
	}
	return kid, nil
}

// scoped maps a zero-row scoped write to the shared rejection
func scoped(err error) error {
	if errors.Is(err, repository.ErrNoRows) {
		return apperr.Unauthorized()
	}
	return err
}
