package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/database/testutil"
	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/pkg/mail"
)

const testPassword = "Sup3r$ecret"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubLimiter struct {
	mu     sync.Mutex
	err    error
	calls  []string
	resets []string
}

func (l *stubLimiter) AllowResend(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, email)
	return l.err
}

func (l *stubLimiter) ResetResend(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets = append(l.resets, email)
	return nil
}

type serviceFixture struct {
	db           *gorm.DB
	clock        *testClock
	mailer       *mail.Recorder
	limiter      *stubLimiter
	audit        *AuditService
	verifier     *EmailVerificationService
	registration *RegistrationService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newTestClock()
	recorder := mail.NewRecorder()
	limiter := &stubLimiter{}

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	verifier, err := NewEmailVerificationService(db, recorder,
		WithVerificationBaseURL("https://app.restaunax.test/verify-email"),
		WithVerificationClock(clock.Now),
		WithResendLimiter(limiter),
		WithVerificationAudit(audit),
	)
	require.NoError(t, err)

	registration, err := NewRegistrationService(db, verifier, audit)
	require.NoError(t, err)

	return &serviceFixture{
		db:           db,
		clock:        clock,
		mailer:       recorder,
		limiter:      limiter,
		audit:        audit,
		verifier:     verifier,
		registration: registration,
	}
}

func (f *serviceFixture) register(t *testing.T, name, email string) *RegistrationResult {
	t.Helper()
	result, err := f.registration.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return result
}

func (f *serviceFixture) registerVerified(t *testing.T, name, email string) *RegistrationResult {
	t.Helper()
	result := f.register(t, name, email)
	require.NotNil(t, result.Verification)
	_, err := f.verifier.ConsumeToken(context.Background(), result.Verification.Token)
	require.NoError(t, err)
	result.User.EmailVerified = true
	return result
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func tokenRowsFor(t *testing.T, db *gorm.DB, userID string) []models.VerificationToken {
	t.Helper()
	var rows []models.VerificationToken
	require.NoError(t, db.Where("user_id = ?", userID).Find(&rows).Error)
	return rows
}
