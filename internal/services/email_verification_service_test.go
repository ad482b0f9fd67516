package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbmarketing1011/restaunax-backend/internal/middleware"
	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
)

func TestConsumeTokenVerifiesOnce(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	result := f.register(t, "Jane", "jane@example.com")

	user, err := f.verifier.ConsumeToken(ctx, result.Verification.Token)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, user.ID)
	require.True(t, user.EmailVerified)

	var stored models.User
	require.NoError(t, f.db.Take(&stored, "id = ?", result.User.ID).Error)
	require.True(t, stored.EmailVerified)
	require.Empty(t, tokenRowsFor(t, f.db, result.User.ID))

	_, err = f.verifier.ConsumeToken(ctx, result.Verification.Token)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConsumeTokenUnknownOrBlank(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.verifier.ConsumeToken(ctx, "")
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = f.verifier.ConsumeToken(ctx, "deadbeef")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConsumeTokenExpiredThenNotFound(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	result := f.register(t, "Jane", "jane@example.com")

	f.clock.Advance(defaultVerificationExpiry)

	_, err := f.verifier.ConsumeToken(ctx, result.Verification.Token)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.Empty(t, tokenRowsFor(t, f.db, result.User.ID))

	_, err = f.verifier.ConsumeToken(ctx, result.Verification.Token)
	require.ErrorIs(t, err, ErrTokenNotFound)

	var stored models.User
	require.NoError(t, f.db.Take(&stored, "id = ?", result.User.ID).Error)
	require.False(t, stored.EmailVerified)
}

func TestConsumeTokenJustBeforeExpiry(t *testing.T) {
	f := newServiceFixture(t)
	result := f.register(t, "Jane", "jane@example.com")

	f.clock.Advance(defaultVerificationExpiry - time.Second)

	_, err := f.verifier.ConsumeToken(context.Background(), result.Verification.Token)
	require.NoError(t, err)
}

func TestIssueTokenInvalidatesPreviousToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	result := f.register(t, "Jane", "jane@example.com")
	first := result.Verification.Token

	second, err := f.verifier.IssueToken(ctx, result.User.ID, result.User.Email)
	require.NoError(t, err)
	require.NotEqual(t, first, second.Token)
	require.Len(t, tokenRowsFor(t, f.db, result.User.ID), 1)

	_, err = f.verifier.ConsumeToken(ctx, first)
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = f.verifier.ConsumeToken(ctx, second.Token)
	require.NoError(t, err)
}

func TestIssueTokenRequiresIdentifiers(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.verifier.IssueToken(context.Background(), "", "a@example.com")
	require.Error(t, err)
	_, err = f.verifier.IssueToken(context.Background(), "user", " ")
	require.Error(t, err)
}

func TestIssueTokenHonoursCustomExpiry(t *testing.T) {
	f := newServiceFixture(t)
	svc, err := NewEmailVerificationService(f.db, nil,
		WithVerificationClock(f.clock.Now),
		WithVerificationExpiry(time.Hour),
	)
	require.NoError(t, err)

	result := f.register(t, "Jane", "jane@example.com")
	issued, err := svc.IssueToken(context.Background(), result.User.ID, result.User.Email)
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().Add(time.Hour), issued.ExpiresAt)
	// No base URL configured, the link is the bare token.
	require.Equal(t, issued.Token, issued.Link)
}

func TestConsumeTokenConcurrentCallsVerifyOnce(t *testing.T) {
	f := newServiceFixture(t)
	result := f.register(t, "Jane", "jane@example.com")

	const callers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.verifier.ConsumeToken(context.Background(), result.Verification.Token)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)
	for _, err := range failures {
		require.ErrorIs(t, err, ErrTokenNotFound)
	}
}

func TestResendIssuesNewToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	result := f.register(t, "Jane", "jane@example.com")

	issued, err := f.verifier.Resend(ctx, " JANE@example.com ", RequestMeta{IPAddress: "203.0.113.7"})
	require.NoError(t, err)
	require.NotEqual(t, result.Verification.Token, issued.Token)
	require.Equal(t, []string{"jane@example.com"}, f.limiter.calls)
	require.Len(t, f.mailer.Messages(), 2)

	_, err = f.verifier.ConsumeToken(ctx, result.Verification.Token)
	require.ErrorIs(t, err, ErrTokenNotFound)
	_, err = f.verifier.ConsumeToken(ctx, issued.Token)
	require.NoError(t, err)
	require.Equal(t, []string{"jane@example.com"}, f.limiter.resets)

	var audits []models.AuditLog
	require.NoError(t, f.db.Where("action = ?", AuditActionResend).Find(&audits).Error)
	require.Len(t, audits, 1)
	require.Equal(t, "203.0.113.7", audits[0].IPAddress)
}

type unavailableRateStore struct{}

func (unavailableRateStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

func (unavailableRateStore) Reset(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func TestResendSurvivesRateStoreOutage(t *testing.T) {
	f := newServiceFixture(t)
	result := f.register(t, "Jane", "jane@example.com")

	verifier, err := NewEmailVerificationService(f.db, f.mailer,
		WithVerificationClock(f.clock.Now),
		WithResendLimiter(middleware.NewEmailRateLimiter(unavailableRateStore{}, 1, time.Hour)),
	)
	require.NoError(t, err)

	issued, err := verifier.Resend(context.Background(), "jane@example.com", RequestMeta{})
	require.NoError(t, err)
	require.NotEqual(t, result.Verification.Token, issued.Token)

	user, err := verifier.ConsumeToken(context.Background(), issued.Token)
	require.NoError(t, err)
	require.True(t, user.EmailVerified)
}

func TestResendVerifiedUserIssuesNothing(t *testing.T) {
	f := newServiceFixture(t)
	result := f.registerVerified(t, "Jane", "jane@example.com")
	sent := len(f.mailer.Messages())

	_, err := f.verifier.Resend(context.Background(), "jane@example.com", RequestMeta{})
	require.ErrorIs(t, err, ErrAlreadyVerified)
	require.Empty(t, tokenRowsFor(t, f.db, result.User.ID))
	require.Len(t, f.mailer.Messages(), sent)
}

func TestResendUnknownEmail(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.verifier.Resend(context.Background(), "ghost@example.com", RequestMeta{})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestResendRateLimitedBeforeLookup(t *testing.T) {
	f := newServiceFixture(t)
	result := f.register(t, "Jane", "jane@example.com")
	original := tokenRowsFor(t, f.db, result.User.ID)
	f.limiter.err = apperrors.ErrRateLimit

	_, err := f.verifier.Resend(context.Background(), "jane@example.com", RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrRateLimit)

	current := tokenRowsFor(t, f.db, result.User.ID)
	require.Len(t, current, 1)
	require.Equal(t, original[0].TokenHash, current[0].TokenHash)
	require.Len(t, f.mailer.Messages(), 1)

	// Unknown addresses are rejected by the limiter too, so the response does not reveal them.
	_, err = f.verifier.Resend(context.Background(), "ghost@example.com", RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrRateLimit)
}

func TestPurgeExpiredTokens(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	stale := f.register(t, "Stale", "stale@example.com")
	f.clock.Advance(2 * defaultVerificationExpiry)
	fresh := f.register(t, "Fresh", "fresh@example.com")

	removed, err := f.verifier.PurgeExpired(ctx, f.clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
	require.Empty(t, tokenRowsFor(t, f.db, stale.User.ID))
	require.Len(t, tokenRowsFor(t, f.db, fresh.User.ID), 1)
}
