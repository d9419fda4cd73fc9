package service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/database"
	"lunara/internal/database/dbtest"
	"lunara/internal/models"
	"lunara/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type captureMailer struct {
	sent []InviteEmail
}

func (m *captureMailer) SendInviteEmail(_ context.Context, invite InviteEmail) error {
	m.sent = append(m.sent, invite)
	return nil
}

const today = "2026-03-10"

type env struct {
	ctx      context.Context
	db       *database.DB
	clock    *fakeClock
	mailer   *captureMailer
	auth     *AuthService
	families *FamilyService
	moons    *MoonService
	schedule *ScheduleService
	shop     *ShopService
	invites  *InviteService
	holidays *HolidayService

	parentA, parentB *models.User
	familyA, familyB models.Family
	kidA, kidB       *models.Kid
	pinA             string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := dbtest.New(t)
	fc := &fakeClock{t: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)}
	clock := Clock{Now: fc.Now, Location: time.UTC}
	logger := zap.NewNop().Sugar()

	moons := NewMoonService(db, clock, logger)
	e := &env{
		ctx:      context.Background(),
		db:       db,
		clock:    fc,
		mailer:   &captureMailer{},
		auth:     NewAuthService(db, 24*time.Hour, clock, logger),
		families: NewFamilyService(db, clock, logger),
		moons:    moons,
		schedule: NewScheduleService(db, moons, clock, logger),
		shop:     NewShopService(db, logger),
		holidays: NewHolidayService(db),
	}
	e.invites = NewInviteService(db, e.mailer, clock, logger)

	var err error
	e.parentA, err = e.auth.Register(e.ctx, "a@example.com", "password-a", "Ada Parent")
	require.NoError(t, err)
	e.parentB, err = e.auth.Register(e.ctx, "b@example.com", "password-b", "Bo Parent")
	require.NoError(t, err)

	fams, err := e.families.ListFamilies(e.ctx, e.modeA())
	require.NoError(t, err)
	require.Len(t, fams, 1)
	e.familyA = fams[0]
	fams, err = e.families.ListFamilies(e.ctx, e.modeB())
	require.NoError(t, err)
	require.Len(t, fams, 1)
	e.familyB = fams[0]

	e.kidA, e.pinA, err = e.families.CreateKid(e.ctx, e.modeA(), e.familyA.ID, "Kit", "1234", "")
	require.NoError(t, err)
	e.kidB, _, err = e.families.CreateKid(e.ctx, e.modeB(), e.familyB.ID, "Kai", "", "#FF8800")
	require.NoError(t, err)
	return e
}

func (e *env) modeA() access.Mode { return access.Standard{UserID: e.parentA.ID} }
func (e *env) modeB() access.Mode { return access.Standard{UserID: e.parentB.ID} }
func (e *env) asKidA() access.Mode { return access.Privileged{KidID: e.kidA.ID} }
func (e *env) asKidB() access.Mode { return access.Privileged{KidID: e.kidB.ID} }

func (e *env) stars(t *testing.T, kidID int64) int {
	t.Helper()
	kid, err := repository.NewKidRepository(e.db).GetKidForLogin(e.ctx, kidID)
	require.NoError(t, err)
	require.NotNil(t, kid)
	return kid.TotalStars
}

func TestRegisterLoginAndSessions(t *testing.T) {
	e := newEnv(t)

	_, err := e.auth.Register(e.ctx, "A@Example.com ", "password-x", "Someone")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, http.StatusConflict, apperr.Status(err))

	_, _, err = e.auth.Login(e.ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, user, err := e.auth.Login(e.ctx, "A@example.com", "password-a")
	require.NoError(t, err)
	assert.Equal(t, e.parentA.ID, user.ID)

	got, err := e.auth.ValidateSession(e.ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.parentA.ID, got.ID)

	got, err = e.auth.ValidateSession(e.ctx, "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, got)

	e.clock.Advance(25 * time.Hour)
	got, err = e.auth.ValidateSession(e.ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired sessions are rejected")

	require.NoError(t, e.auth.Logout(e.ctx, session.ID))
}

func TestCleanupExpiredSessions(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.auth.Login(e.ctx, "a@example.com", "password-a")
	require.NoError(t, err)
	_, _, err = e.auth.Login(e.ctx, "b@example.com", "password-b")
	require.NoError(t, err)

	n, err := e.auth.CleanupExpiredSessions(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	e.clock.Advance(25 * time.Hour)
	fresh, _, err := e.auth.Login(e.ctx, "a@example.com", "password-a")
	require.NoError(t, err)

	n, err = e.auth.CleanupExpiredSessions(e.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	user, err := e.auth.ValidateSession(e.ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, user)
}

func TestOAuthLoginLinksExistingAccount(t *testing.T) {
	e := newEnv(t)

	_, user, err := e.auth.OAuthLogin(e.ctx, "google", "sub-123", "a@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, e.parentA.ID, user.ID)

	_, again, err := e.auth.OAuthLogin(e.ctx, "google", "sub-123", "changed@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, e.parentA.ID, again.ID, "provider subject wins over email")

	_, fresh, err := e.auth.OAuthLogin(e.ctx, "google", "sub-456", "new@example.com", "")
	require.NoError(t, err)
	assert.NotEqual(t, e.parentA.ID, fresh.ID)
	assert.Equal(t, "new", fresh.Name)

	fams, err := e.families.ListFamilies(e.ctx, access.Standard{UserID: fresh.ID})
	require.NoError(t, err)
	assert.Len(t, fams, 1, "new oauth parents own a family")
}

func TestVerifyKidPINLockout(t *testing.T) {
	e := newEnv(t)

	_, err := e.families.VerifyKidPIN(e.ctx, e.kidA.ID, "12a4")
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	kid, err := e.families.VerifyKidPIN(e.ctx, e.kidA.ID, e.pinA)
	require.NoError(t, err)
	assert.Equal(t, e.kidA.ID, kid.ID)

	for i := 1; i < MaxPinAttempts; i++ {
		_, err = e.families.VerifyKidPIN(e.ctx, e.kidA.ID, "0000")
		assert.ErrorIs(t, err, ErrInvalidPIN, "attempt %d", i)
	}
	_, err = e.families.VerifyKidPIN(e.ctx, e.kidA.ID, "0000")
	assert.ErrorIs(t, err, ErrPINLocked)
	assert.Equal(t, http.StatusLocked, apperr.Status(err))

	_, err = e.families.VerifyKidPIN(e.ctx, e.kidA.ID, e.pinA)
	assert.ErrorIs(t, err, ErrPINLocked, "the correct PIN is refused while locked")

	e.clock.Advance(PinLockout + time.Second)
	_, err = e.families.VerifyKidPIN(e.ctx, e.kidA.ID, e.pinA)
	require.NoError(t, err)

	_, err = e.families.VerifyKidPIN(e.ctx, 9999, "1234")
	assert.ErrorIs(t, err, ErrInvalidPIN)
}

func TestParallelWrongPINsStillLock(t *testing.T) {
	e := newEnv(t)

	var wg sync.WaitGroup
	errs := make([]error, MaxPinAttempts)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.families.VerifyKidPIN(e.ctx, e.kidA.ID, "0000")
		}(i)
	}
	wg.Wait()

	locked := 0
	for _, err := range errs {
		if errors.Is(err, ErrPINLocked) {
			locked++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidPIN)
	}
	assert.GreaterOrEqual(t, locked, 1)

	_, err := e.families.VerifyKidPIN(e.ctx, e.kidA.ID, e.pinA)
	assert.ErrorIs(t, err, ErrPINLocked)
}

func TestSetKidPINAndUnlock(t *testing.T) {
	e := newEnv(t)

	assert.ErrorIs(t, e.families.SetKidPIN(e.ctx, e.modeB(), e.kidA.ID, "4321"), apperr.ErrUnauthorized)
	assert.ErrorIs(t, e.families.SetKidPIN(e.ctx, e.asKidA(), e.kidA.ID, "4321"), apperr.ErrUnauthorized)

	for i := 0; i < MaxPinAttempts; i++ {
		_, _ = e.families.VerifyKidPIN(e.ctx, e.kidA.ID, "0000")
	}
	require.NoError(t, e.families.SetKidPIN(e.ctx, e.modeA(), e.kidA.ID, "4321"))

	_, err := e.families.VerifyKidPIN(e.ctx, e.kidA.ID, "4321")
	require.NoError(t, err, "setting a PIN clears the lockout")

	assert.ErrorIs(t, e.families.UnlockKid(e.ctx, 424242), apperr.ErrNotFound)
}

func TestCreateKidScopedToFamily(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.families.CreateKid(e.ctx, e.modeB(), e.familyA.ID, "Intruder", "", "")
	assert.Equal(t, apperr.MsgUnauthorizedOrNotFound, apperr.Message(err))

	kid, pin, err := e.families.CreateKid(e.ctx, e.modeA(), e.familyA.ID, "Second", "", "")
	require.NoError(t, err)
	assert.Len(t, pin, 4)
	assert.Equal(t, DefaultAvatarColor, kid.AvatarColor)

	kids, err := e.families.ListKids(e.ctx, e.modeA())
	require.NoError(t, err)
	assert.Len(t, kids, 2)

	overview, err := e.families.Overview(e.ctx, e.modeA(), e.familyA.ID)
	require.NoError(t, err)
	assert.Len(t, overview.Members, 1)
	assert.Len(t, overview.Kids, 2)

	_, err = e.families.Overview(e.ctx, e.modeB(), e.familyA.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSetItemDoneAwardsOnce(t *testing.T) {
	e := newEnv(t)
	item, err := e.schedule.CreateItem(e.ctx, e.modeA(), e.kidA.ID, "Long division", today)
	require.NoError(t, err)

	res, err := e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCompletionStars, res.Awarded)

	res, err = e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, true)
	require.NoError(t, err, "repeating done is not an error")
	assert.Zero(t, res.Awarded)

	_, err = e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, false)
	require.NoError(t, err)
	res, err = e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, true)
	require.NoError(t, err)
	assert.Zero(t, res.Awarded, "toggling off and on does not award again")

	assert.Equal(t, models.ItemCompletionStars, e.stars(t, e.kidA.ID))
}

func TestSetItemDoneAwardsOnceAcrossDays(t *testing.T) {
	e := newEnv(t)
	item, err := e.schedule.CreateItem(e.ctx, e.modeA(), e.kidA.ID, "Fractions", today)
	require.NoError(t, err)

	res, err := e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCompletionStars, res.Awarded)

	for day := 1; day <= 3; day++ {
		e.clock.Advance(24 * time.Hour)
		_, err = e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, false)
		require.NoError(t, err)
		res, err = e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, true)
		require.NoError(t, err)
		assert.Zero(t, res.Awarded, "day %d", day)
	}

	assert.Equal(t, models.ItemCompletionStars, e.stars(t, e.kidA.ID))
}

func TestSetItemDoneAccess(t *testing.T) {
	e := newEnv(t)
	item, err := e.schedule.CreateItem(e.ctx, e.modeA(), e.kidA.ID, "Reading", today)
	require.NoError(t, err)

	_, err = e.schedule.SetItemDone(e.ctx, e.asKidB(), item.ID, true)
	require.Error(t, err)
	assert.Equal(t, apperr.Result{Success: false, Error: "Unauthorized or Item Not Found"}, apperr.Fail(err))

	_, err = e.schedule.SetItemDone(e.ctx, e.modeB(), item.ID, true)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized, "a parent outside the family is refused")

	res, err := e.schedule.SetItemDone(e.ctx, e.modeA(), item.ID, true)
	require.NoError(t, err, "the family's parent may act on the item")
	assert.Equal(t, e.kidA.ID, res.KidID)

	assert.Zero(t, e.stars(t, e.kidB.ID))

	_, err = e.schedule.CreateItem(e.ctx, e.asKidA(), e.kidA.ID, "Self-assigned", today)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.ErrorIs(t, e.schedule.DeleteItem(e.ctx, e.asKidA(), item.ID), apperr.ErrUnauthorized)
}

func TestClaimDailyBonusOncePerDay(t *testing.T) {
	e := newEnv(t)

	_, err := e.moons.ClaimDailyBonus(e.ctx, e.asKidA(), e.kidA.ID, today)
	assert.ErrorIs(t, err, ErrDayIncomplete, "a day with no items earns nothing")

	first, err := e.schedule.CreateItem(e.ctx, e.modeA(), e.kidA.ID, "Spelling", today)
	require.NoError(t, err)
	second, err := e.schedule.CreateItem(e.ctx, e.modeA(), e.kidA.ID, "Piano", today)
	require.NoError(t, err)

	_, err = e.schedule.SetItemDone(e.ctx, e.asKidA(), first.ID, true)
	require.NoError(t, err)
	_, err = e.moons.ClaimDailyBonus(e.ctx, e.asKidA(), e.kidA.ID, today)
	assert.ErrorIs(t, err, ErrDayIncomplete)

	_, err = e.schedule.SetItemDone(e.ctx, e.asKidA(), second.ID, true)
	require.NoError(t, err)

	_, err = e.moons.ClaimDailyBonus(e.ctx, e.asKidB(), e.kidA.ID, today)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	res, err := e.moons.ClaimDailyBonus(e.ctx, e.asKidA(), e.kidA.ID, today)
	require.NoError(t, err)
	assert.True(t, res.Awarded)
	assert.Equal(t, 2*models.ItemCompletionStars+models.DailyBonusStars, res.TotalStars)

	for i := 0; i < 3; i++ {
		res, err = e.moons.ClaimDailyBonus(e.ctx, e.asKidA(), e.kidA.ID, today)
		require.NoError(t, err)
		assert.False(t, res.Awarded)
	}

	balance, err := e.moons.Balance(e.ctx, e.modeA(), e.kidA.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*models.ItemCompletionStars+models.DailyBonusStars, balance.TotalStars)
	assert.Equal(t, 1, balance.Streak)

	history, err := e.moons.History(e.ctx, e.asKidA(), e.kidA.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	_, err = e.moons.ClaimDailyBonus(e.ctx, e.asKidA(), e.kidA.ID, "2026-03-11")
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err), "future dates are refused")
}

func TestConcurrentCompletionAwardsOnce(t *testing.T) {
	e := newEnv(t)
	item, err := e.schedule.CreateItem(e.ctx, e.modeA(), e.kidA.ID, "Science", today)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, true)
		}()
	}
	wg.Wait()

	assert.Equal(t, models.ItemCompletionStars, e.stars(t, e.kidA.ID))
}

func TestShopPurchase(t *testing.T) {
	e := newEnv(t)

	catalog, err := e.shop.Catalog(e.ctx, e.asKidA(), e.kidA.ID)
	require.NoError(t, err)
	require.NotEmpty(t, catalog)
	item := catalog[0]
	assert.False(t, item.Owned)

	_, err = e.shop.Catalog(e.ctx, e.asKidB(), e.kidA.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = e.shop.Catalog(e.ctx, e.modeB(), e.kidA.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = e.shop.Purchase(e.ctx, e.asKidA(), e.kidA.ID, item.ID)
	assert.ErrorIs(t, err, ErrNotEnoughMoons)

	require.NoError(t, repository.NewKidRepository(e.db).AddStars(e.ctx, e.kidA.ID, item.Cost+3))

	_, err = e.shop.Purchase(e.ctx, e.asKidB(), e.kidA.ID, item.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	res, err := e.shop.Purchase(e.ctx, e.asKidA(), e.kidA.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalStars)
	assert.Equal(t, 3, e.stars(t, e.kidA.ID))

	_, err = e.shop.Purchase(e.ctx, e.asKidA(), e.kidA.ID, item.ID)
	assert.ErrorIs(t, err, ErrAlreadyOwned)

	_, err = e.shop.Purchase(e.ctx, e.asKidA(), e.kidA.ID, 987654)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	catalog, err = e.shop.Catalog(e.ctx, e.asKidA(), e.kidA.ID)
	require.NoError(t, err)
	assert.True(t, catalog[0].Owned)
}

func TestUpdateAvatar(t *testing.T) {
	e := newEnv(t)
	catalog, err := e.shop.Catalog(e.ctx, e.asKidA(), e.kidA.ID)
	require.NoError(t, err)
	item := catalog[0]

	_, err = e.shop.UpdateAvatar(e.ctx, e.asKidA(), e.kidA.ID, "#112233", []int64{item.ID})
	assert.ErrorIs(t, err, ErrItemNotOwned)

	_, err = e.shop.UpdateAvatar(e.ctx, e.asKidA(), e.kidA.ID, "blue", nil)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	require.NoError(t, repository.NewKidRepository(e.db).AddStars(e.ctx, e.kidA.ID, item.Cost))
	_, err = e.shop.Purchase(e.ctx, e.asKidA(), e.kidA.ID, item.ID)
	require.NoError(t, err)

	state, err := e.shop.UpdateAvatar(e.ctx, e.asKidA(), e.kidA.ID, "#112233", []int64{item.ID, item.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{item.ID}, state.Equipped)

	_, err = e.shop.UpdateAvatar(e.ctx, e.asKidB(), e.kidA.ID, "#112233", nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	got, err := e.shop.Avatar(e.ctx, e.modeA(), e.kidA.ID)
	require.NoError(t, err)
	assert.Equal(t, "#112233", got.Color)
	assert.Equal(t, []int64{item.ID}, got.Equipped)
	assert.Len(t, got.Owned, 1)
}

func TestInviteLifecycle(t *testing.T) {
	e := newEnv(t)

	_, err := e.invites.Create(e.ctx, e.modeB(), e.familyA.ID, "c@example.com")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = e.invites.Create(e.ctx, e.asKidA(), e.familyA.ID, "c@example.com")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = e.invites.Create(e.ctx, e.modeA(), e.familyA.ID, "a@example.com")
	assert.ErrorIs(t, err, ErrInviteSelfMember)

	invite, err := e.invites.Create(e.ctx, e.modeA(), e.familyA.ID, "C@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", invite.Email)
	assert.Equal(t, models.InviteStatusPending, invite.Status)
	require.Len(t, e.mailer.sent, 1)
	assert.Equal(t, invite.Code, e.mailer.sent[0].Code)

	_, err = e.invites.Accept(e.ctx, e.modeB(), invite.Code)
	assert.ErrorIs(t, err, ErrInviteEmail)

	parentC, err := e.auth.Register(e.ctx, "c@example.com", "password-c", "Cy Parent")
	require.NoError(t, err)
	modeC := access.Standard{UserID: parentC.ID}

	family, err := e.invites.Accept(e.ctx, modeC, invite.Code)
	require.NoError(t, err)
	assert.Equal(t, e.familyA.ID, family.ID)

	_, err = e.invites.Accept(e.ctx, modeC, invite.Code)
	assert.ErrorIs(t, err, ErrInvalidInvite)
	assert.Equal(t, http.StatusNotFound, apperr.Status(err))
	assert.Equal(t, "Invalid or expired invite", apperr.Message(err))

	res, err := e.schedule.CreateItem(e.ctx, modeC, e.kidA.ID, "Joined parent item", today)
	require.NoError(t, err, "the new member can manage the family's kids")
	assert.Equal(t, e.kidA.ID, res.KidID)

	invites, err := e.invites.List(e.ctx, e.modeA(), e.familyA.ID)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, models.InviteStatusAccepted, invites[0].Status)
}

func TestInviteExpiry(t *testing.T) {
	e := newEnv(t)
	parentC, err := e.auth.Register(e.ctx, "c@example.com", "password-c", "Cy Parent")
	require.NoError(t, err)

	invite, err := e.invites.Create(e.ctx, e.modeA(), e.familyA.ID, "c@example.com")
	require.NoError(t, err)

	e.clock.Advance(InviteTTL + time.Minute)
	_, err = e.invites.Accept(e.ctx, access.Standard{UserID: parentC.ID}, invite.Code)
	assert.ErrorIs(t, err, ErrInvalidInvite)

	n, err := e.invites.ExpireStale(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = e.invites.Accept(e.ctx, access.Standard{UserID: parentC.ID}, "unknown-code")
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestHolidaysAndDayView(t *testing.T) {
	e := newEnv(t)

	_, err := e.holidays.Create(e.ctx, e.asKidA(), e.familyA.ID, today, "Snow day")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	holiday, err := e.holidays.Create(e.ctx, e.modeA(), e.familyA.ID, today, "Snow day")
	require.NoError(t, err)

	_, err = e.holidays.Create(e.ctx, e.modeA(), e.familyA.ID, today, "Again")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	list, err := e.holidays.List(e.ctx, e.asKidA(), e.familyA.ID, "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = e.holidays.List(e.ctx, e.asKidB(), e.familyA.ID, "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.Empty(t, list, "another family's kid sees nothing")

	day, err := e.schedule.Day(e.ctx, e.asKidA(), e.kidA.ID, "")
	require.NoError(t, err)
	assert.Equal(t, today, day.Date)
	assert.True(t, day.Holiday)

	assert.ErrorIs(t, e.holidays.Delete(e.ctx, e.modeB(), holiday.ID), apperr.ErrUnauthorized)
	require.NoError(t, e.holidays.Delete(e.ctx, e.modeA(), holiday.ID))
}

func TestExportFamily(t *testing.T) {
	e := newEnv(t)
	exports := NewExportService(e.db, Clock{Now: e.clock.Now, Location: time.UTC})

	item, err := e.schedule.CreateItem(e.ctx, e.modeA(), e.kidA.ID, "Map drawing", today)
	require.NoError(t, err)
	_, err = e.schedule.SetItemDone(e.ctx, e.asKidA(), item.ID, true)
	require.NoError(t, err)

	_, err = exports.ExportFamily(e.ctx, e.asKidA(), e.familyA.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = exports.ExportFamily(e.ctx, e.modeB(), e.familyA.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	snapshot, err := exports.ExportFamily(e.ctx, e.modeA(), e.familyA.ID)
	require.NoError(t, err)
	assert.Equal(t, e.familyA.ID, snapshot.Family.ID)
	require.Len(t, snapshot.Members, 1)
	require.Len(t, snapshot.Kids, 1)
	assert.Equal(t, e.kidA.ID, snapshot.Kids[0].Kid.ID)
	require.Len(t, snapshot.Kids[0].Awards, 1)
	assert.Equal(t, models.AwardItemCompletion, snapshot.Kids[0].Awards[0].Reason)

	path := filepath.Join(t.TempDir(), "exports", "family.json")
	require.NoError(t, exports.ExportToFile(e.ctx, e.modeA(), e.familyA.ID, path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Kit"`)
}
