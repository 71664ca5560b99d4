package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mealtrack-api/internal/application/otp"
	"github.com/mealtrack-api/internal/domain"
	"github.com/mealtrack-api/internal/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Activate(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockOTPService struct{ mock.Mock }

func (m *mockOTPService) Create(ctx context.Context, userID string, code int) error {
	return m.Called(ctx, userID, code).Error(0)
}
func (m *mockOTPService) GetLive(ctx context.Context, userID string) (*domain.OneTimeCode, error) {
	args := m.Called(ctx, userID)
	if c, _ := args.Get(0).(*domain.OneTimeCode); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOTPService) Verify(ctx context.Context, userID string, submitted int) (bool, error) {
	args := m.Called(ctx, userID, submitted)
	return args.Bool(0), args.Error(1)
}
func (m *mockOTPService) SupersedeAll(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) EnqueueVerificationEmail(ctx context.Context, email string, code int) error {
	return m.Called(ctx, email, code).Error(0)
}

type mockIssuer struct{ mock.Mock }

func (m *mockIssuer) CreateTokens(u *domain.User) (*domain.TokenPair, error) {
	args := m.Called(u)
	if p, _ := args.Get(0).(*domain.TokenPair); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIssuer) RefreshTokens(refreshToken string) (*domain.TokenPair, error) {
	args := m.Called(refreshToken)
	if p, _ := args.Get(0).(*domain.TokenPair); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func newService(us *mockUserStore, os *mockOTPService, n *mockNotifier, iss *mockIssuer) Service {
	return NewService(ServiceDeps{
		UserRepo:    us,
		OTPService:  os,
		Notifier:    n,
		TokenIssuer: iss,
	})
}

func registerReq() domain.RegisterRequest {
	return domain.RegisterRequest{
		Email:     "a@x.com",
		Password:  "Str0ngP@ss",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

// --- Register ---

func TestRegister_InvalidEmail(t *testing.T) {
	svc := newService(nil, nil, nil, nil)
	req := registerReq()
	req.Email = "not-an-email"
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_WeakPassword(t *testing.T) {
	svc := newService(nil, nil, nil, nil)
	req := registerReq()
	req.Password = "weak"
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1"}, nil)

	svc := newService(us, nil, nil, nil)
	_, err := svc.Register(context.Background(), registerReq())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRegister_EmailLookupFault_IsInternal(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("dynamo down"))

	svc := newService(us, nil, nil, nil)
	_, err := svc.Register(context.Background(), registerReq())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInternal))
	// a degraded store must never let a registration through
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	n := &mockNotifier{}

	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "a@x.com" && !u.IsActive && u.Role == domain.RoleUser &&
			u.PasswordHash != "" && u.PasswordHash != "Str0ngP@ss"
	})).Return(nil)
	os.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	n.On("EnqueueVerificationEmail", mock.Anything, "a@x.com", mock.Anything).Return(nil).Once()

	svc := newService(us, os, n, nil)
	u, err := svc.Register(context.Background(), registerReq())

	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.True(t, security.VerifyPassword("Str0ngP@ss", u.PasswordHash))
	us.AssertExpectations(t)
	os.AssertExpectations(t) // exactly one code issued
	n.AssertExpectations(t)  // exactly one notification enqueued
}

func TestRegister_EmailLowercased(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	n := &mockNotifier{}

	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "a@x.com"
	})).Return(nil)
	os.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	n.On("EnqueueVerificationEmail", mock.Anything, "a@x.com", mock.Anything).Return(nil)

	svc := newService(us, os, n, nil)
	req := registerReq()
	req.Email = "  A@X.COM "
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestRegister_NotifierFailure_IsNonFatal(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	n := &mockNotifier{}

	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.Anything).Return(nil)
	os.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	n.On("EnqueueVerificationEmail", mock.Anything, "a@x.com", mock.Anything).
		Return(errors.New("queue unreachable"))

	svc := newService(us, os, n, nil)
	_, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
}

// --- ConfirmOTP ---

func TestConfirmOTP_UserNotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	_, err := svc.ConfirmOTP(context.Background(), "a@x.com", 123456)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestConfirmOTP_InvalidCode(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1"}, nil)
	os.On("Verify", mock.Anything, "u1", 999999).Return(false, nil)

	svc := newService(us, os, nil, nil)
	_, err := svc.ConfirmOTP(context.Background(), "a@x.com", 999999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
	// no partial mutation
	us.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything)
}

func TestConfirmOTP_StoreFault_IsInternalNotInvalidCode(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1"}, nil)
	os.On("Verify", mock.Anything, "u1", 123456).
		Return(false, fmt.Errorf("read otp: %w", domain.ErrInternal))

	svc := newService(us, os, nil, nil)
	_, err := svc.ConfirmOTP(context.Background(), "a@x.com", 123456)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInternal))
	assert.False(t, errors.Is(err, domain.ErrInvalidCredential))
	us.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything)
}

func TestConfirmOTP_SupersedeFailure_IsInternal(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1"}, nil)
	os.On("Verify", mock.Anything, "u1", 123456).Return(true, nil)
	us.On("Activate", mock.Anything, "u1").Return(nil)
	os.On("SupersedeAll", mock.Anything, "u1").Return(errors.New("dynamo down"))

	svc := newService(us, os, nil, nil)
	_, err := svc.ConfirmOTP(context.Background(), "a@x.com", 123456)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInternal))
	// activation itself is committed before the supersede
	us.AssertCalled(t, "Activate", mock.Anything, "u1")
}

func TestConfirmOTP_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1", Email: "a@x.com"}, nil)
	os.On("Verify", mock.Anything, "u1", 123456).Return(true, nil)
	us.On("Activate", mock.Anything, "u1").Return(nil)
	os.On("SupersedeAll", mock.Anything, "u1").Return(nil)

	svc := newService(us, os, nil, nil)
	u, err := svc.ConfirmOTP(context.Background(), "a@x.com", 123456)

	require.NoError(t, err)
	assert.True(t, u.IsActive)
	us.AssertExpectations(t)
	os.AssertExpectations(t)
}

// --- ResendOTP ---

func TestResendOTP_UserNotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	_, err := svc.ResendOTP(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResendOTP_IssuesNewCodeAndEnqueues(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	n := &mockNotifier{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1", Email: "a@x.com"}, nil)
	os.On("Create", mock.Anything, "u1", mock.Anything).Return(nil).Once()
	n.On("EnqueueVerificationEmail", mock.Anything, "a@x.com", mock.Anything).Return(nil).Once()

	svc := newService(us, os, n, nil)
	_, err := svc.ResendOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	os.AssertExpectations(t)
	n.AssertExpectations(t)
}

// --- Login ---

func TestLogin_UnknownEmailAndWrongPassword_Indistinguishable(t *testing.T) {
	hash, err := security.HashPassword("Corr3ctPass")
	require.NoError(t, err)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{
		UserID: "u1", Email: "a@x.com", PasswordHash: hash,
	}, nil)

	svc := newService(us, nil, nil, &mockIssuer{})

	_, _, err1 := svc.Login(context.Background(), "ghost@x.com", "Corr3ctPass")
	_, _, err2 := svc.Login(context.Background(), "a@x.com", "WrongPass1")

	require.Error(t, err1)
	require.Error(t, err2)
	assert.True(t, errors.Is(err1, domain.ErrUnauthorized))
	assert.True(t, errors.Is(err2, domain.ErrUnauthorized))
	assert.Equal(t, err1.Error(), err2.Error())
}

func TestLogin_StoreFault_IsInternalNotUnauthorized(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("dynamo down"))

	svc := newService(us, nil, nil, &mockIssuer{})
	_, _, err := svc.Login(context.Background(), "a@x.com", "Corr3ctPass")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInternal))
	assert.False(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_HappyPath(t *testing.T) {
	hash, err := security.HashPassword("Corr3ctPass")
	require.NoError(t, err)

	us := &mockUserStore{}
	iss := &mockIssuer{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{
		UserID: "u1", Email: "a@x.com", PasswordHash: hash, IsActive: true,
	}, nil)
	iss.On("CreateTokens", mock.Anything).Return(&domain.TokenPair{
		AccessToken: "access", RefreshToken: "refresh",
	}, nil)

	svc := newService(us, nil, nil, iss)
	u, pair, err := svc.Login(context.Background(), "a@x.com", "Corr3ctPass")

	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "access", pair.AccessToken)
	assert.Equal(t, "refresh", pair.RefreshToken)
}

// --- Refresh ---

func TestRefresh_IssuerFailureNormalizedToUnauthorized(t *testing.T) {
	iss := &mockIssuer{}
	iss.On("RefreshTokens", "bad-token").Return(nil, errors.New("parse failure detail"))

	svc := newService(nil, nil, nil, iss)
	_, err := svc.Refresh(context.Background(), "bad-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.NotContains(t, err.Error(), "parse failure detail")
}

func TestRefresh_HappyPath(t *testing.T) {
	iss := &mockIssuer{}
	iss.On("RefreshTokens", "refresh").Return(&domain.TokenPair{
		AccessToken: "new-access", RefreshToken: "new-refresh",
	}, nil)

	svc := newService(nil, nil, nil, iss)
	pair, err := svc.Refresh(context.Background(), "refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", pair.AccessToken)
}

// --- full lifecycle scenario over in-memory fakes ---

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User // by id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*domain.User{}}
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserStore) Get(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Put(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.UserID] = &cp
	return nil
}

func (f *fakeUserStore) Activate(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsActive = true
	return nil
}

type fakeOTPStore struct {
	mu    sync.Mutex
	codes map[string]*domain.OneTimeCode // by user id, single slot
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: map[string]*domain.OneTimeCode{}}
}

func (f *fakeOTPStore) Put(_ context.Context, c *domain.OneTimeCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.codes[c.UserID] = &cp // overwrite = supersede
	return nil
}

func (f *fakeOTPStore) Get(_ context.Context, userID string) (*domain.OneTimeCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeOTPStore) DeleteAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, userID)
	return nil
}

type capturingNotifier struct {
	mu    sync.Mutex
	codes []int
}

func (c *capturingNotifier) EnqueueVerificationEmail(_ context.Context, _ string, code int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, code)
	return nil
}

func TestLifecycle_RegisterResendConfirm(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore()
	codes := newFakeOTPStore()
	notifier := &capturingNotifier{}
	otpSvc := otp.NewService(codes, users, 5*time.Minute)
	svc := NewService(ServiceDeps{
		UserRepo:   users,
		OTPService: otpSvc,
		Notifier:   notifier,
	})

	// register: one live code, user inactive
	u, err := svc.Register(ctx, registerReq())
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	require.Len(t, notifier.codes, 1)
	c1 := notifier.codes[0]
	live, err := otpSvc.GetLive(ctx, u.UserID)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, c1, live.Code)

	// resend: exactly one live code remains — the latest
	_, err = svc.ResendOTP(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, notifier.codes, 2)
	c2 := notifier.codes[1]
	live, err = otpSvc.GetLive(ctx, u.UserID)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, c2, live.Code)

	// superseded code no longer confirms (codes may collide only with
	// probability 1/900000; regenerate the check when they do)
	if c1 != c2 {
		_, err = svc.ConfirmOTP(ctx, "a@x.com", c1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
	}

	// latest code activates exactly once
	confirmed, err := svc.ConfirmOTP(ctx, "a@x.com", c2)
	require.NoError(t, err)
	assert.True(t, confirmed.IsActive)

	stored, err := users.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	// second confirm with the now-superseded code fails
	_, err = svc.ConfirmOTP(ctx, "a@x.com", c2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
}
