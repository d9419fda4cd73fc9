package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

// InviteTTL is how long an invite stays acceptable
const InviteTTL = 7 * 24 * time.Hour

var (
	ErrInvalidInvite    = apperr.New(apperr.ErrNotFound, apperr.MsgInvalidInvite)
	ErrInviteEmail      = apperr.New(apperr.ErrUnauthorized, "This invite was sent to a different email address")
	ErrAlreadyMember    = apperr.New(apperr.ErrConflict, "Already a member of this family")
	ErrDuplicateInvite  = apperr.New(apperr.ErrConflict, "Invite code collision, please retry")
	ErrInviteSelfMember = apperr.New(apperr.ErrConflict, "That parent is already a member of this family")
)

// InviteService issues and redeems family invites
type InviteService struct {
	db         *database.DB
	inviteRepo *repository.InvitationRepository
	familyRepo *repository.FamilyRepository
	userRepo   *repository.UserRepository
	mailer     Mailer
	clock      Clock
	logger     *zap.SugaredLogger
}

// NewInviteService creates a new invite service. mailer may be nil.
func NewInviteService(db *database.DB, mailer Mailer, clock Clock, logger *zap.SugaredLogger) *InviteService {
	return &InviteService{
		db:         db,
		inviteRepo: repository.NewInvitationRepository(db),
		familyRepo: repository.NewFamilyRepository(db),
		userRepo:   repository.NewUserRepository(db),
		mailer:     mailer,
		clock:      clock,
		logger:     logger,
	}
}

// Create issues an email-bound invite into a family the parent belongs to
func (s *InviteService) Create(ctx context.Context, mode access.Mode, familyID int64, email string) (*models.FamilyInvite, error) {
	userID, ok := access.ParentID(mode)
	if !ok {
		return nil, ErrParentOnly
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	family, err := s.familyRepo.GetFamily(ctx, mode, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, apperr.Unauthorized()
	}

	invitee, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if invitee != nil {
		member, err := s.familyRepo.GetMembership(ctx, familyID, invitee.ID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			return nil, ErrInviteSelfMember
		}
	}

	invite := &models.FamilyInvite{
		FamilyID:  familyID,
		Code:      ksuid.New().String(),
		Email:     email,
		InvitedBy: userID,
		ExpiresAt: s.clock.now().Add(InviteTTL),
	}
	err = s.inviteRepo.CreateInvite(ctx, mode, invite)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrDuplicateInvite
	}
	if err := scoped(err); err != nil {
		return nil, err
	}

	s.logger.Infow("family invite created", "invite_id", invite.ID, "family_id", familyID, "actor", mode.Actor())

	if s.mailer != nil {
		inviterName := ""
		if inviter, err := s.userRepo.GetUserByID(ctx, userID); err == nil && inviter != nil {
			inviterName = inviter.Name
		}
		mail := InviteEmail{To: email, FamilyName: family.Name, InviterName: inviterName, Code: invite.Code}
		if err := s.mailer.SendInviteEmail(ctx, mail); err != nil {
			s.logger.Warnw("failed to send invite email", "invite_id", invite.ID, "error", err)
		}
	}
	return invite, nil
}

// List returns a family's invites
func (s *InviteService) List(ctx context.Context, mode access.Mode, familyID int64) ([]models.FamilyInvite, error) {
	if !access.IsParent(mode) {
		return nil, ErrParentOnly
	}
	return s.inviteRepo.ListForFamily(ctx, mode, familyID)
}

// Accept redeems an invite for the acting parent. The invite must be pending,
// unexpired and addressed to the parent's email.
func (s *InviteService) Accept(ctx context.Context, mode access.Mode, code string) (*models.Family, error) {
	userID, ok := access.ParentID(mode)
	if !ok {
		return nil, ErrParentOnly
	}

	invite, err := s.inviteRepo.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	if invite == nil || !invite.IsUsable(now) {
		return nil, ErrInvalidInvite
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.Unauthorized()
	}
	if !strings.EqualFold(user.Email, invite.Email) {
		return nil, ErrInviteEmail
	}

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := s.inviteRepo.WithTx(tx).MarkAccepted(ctx, invite.ID, userID, now); err != nil {
			if errors.Is(err, repository.ErrNoRows) {
				return ErrInvalidInvite
			}
			return err
		}
		err := s.familyRepo.WithTx(tx).AddMember(ctx, invite.FamilyID, userID, models.RoleMember)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyMember
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("family invite accepted", "invite_id", invite.ID, "family_id", invite.FamilyID, "user_id", userID)
	return s.familyRepo.GetFamily(ctx, mode, invite.FamilyID)
}

// ExpireStale marks overdue pending invites as expired
func (s *InviteService) ExpireStale(ctx context.Context) (int64, error) {
	return s.inviteRepo.ExpireStale(ctx, s.clock.now())
}
