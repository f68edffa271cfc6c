package services

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"spinwin/mockapi"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testOTP = "1234"

var testNow = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := OpenLocalStore("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	return store
}

type testEnv struct {
	clock    *clockwork.FakeClock
	store    *LocalStore
	catalog  *Catalog
	backend  *BackendClient
	mockDB   *gorm.DB
	mockURL  string
	deps     WidgetDeps
	registry *WidgetRegistry
}

// newTestEnv wires a widget stack against the mock backend over HTTP.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)

	mockDB := openMemoryDB(t)
	require.NoError(t, mockapi.AutoMigrate(mockDB))
	mock := mockapi.New(mockapi.Config{
		DB:           mockDB,
		JWTSecret:    "test-secret",
		TokenTTL:     time.Hour,
		OTPCode:      testOTP,
		ServiceToken: "svc",
		Clock:        clock,
	})
	srv := httptest.NewServer(adaptor.FiberApp(mock.App()))
	t.Cleanup(srv.Close)

	catalog, err := LoadCatalog("")
	require.NoError(t, err)

	env := &testEnv{
		clock:   clock,
		store:   newTestStore(t),
		catalog: catalog,
		backend: NewBackendClient(srv.URL, nil),
		mockDB:  mockDB,
		mockURL: srv.URL,
	}
	env.deps = WidgetDeps{
		Backend:           env.backend,
		Store:             env.store,
		Catalog:           catalog,
		Clock:             clock,
		QuotaLocation:     time.UTC,
		OTPResendInterval: 30 * time.Second,
	}
	env.registry = NewWidgetRegistry(env.deps)
	return env
}

// registerVerified creates a phone-verified account on the mock backend.
func (e *testEnv) registerVerified(t *testing.T, email, password, name, phone string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.backend.Signup(ctx, SignupRequest{Email: email, Password: password, Name: name, Number: phone})
	require.NoError(t, err)
	require.NoError(t, e.backend.SendOTP(ctx, phone))
	require.NoError(t, e.backend.VerifyOTP(ctx, phone, testOTP))
}

func (e *testEnv) keys(deviceID string) Keys { return Keys{DeviceID: deviceID} }

func (e *testEnv) newSpinEngine(deviceID string) *SpinEngine {
	return NewSpinEngine(e.store, e.keys(deviceID), e.catalog, e.clock, time.UTC)
}

// stubBackend fails every call with err unless a func is set.
type stubBackend struct {
	err         error
	verifyToken func(token string) (*VerifyTokenResponse, error)
	claims      []RewardClaimPayload
	dashboard   *DashboardResponse
}

func (s *stubBackend) Signup(context.Context, SignupRequest) (*SignupResponse, error) {
	return nil, s.err
}

func (s *stubBackend) Login(context.Context, string, string) (*LoginResponse, error) {
	return nil, s.err
}

func (s *stubBackend) VerifyToken(_ context.Context, token string) (*VerifyTokenResponse, error) {
	if s.verifyToken != nil {
		return s.verifyToken(token)
	}
	return nil, s.err
}

func (s *stubBackend) SendOTP(context.Context, string) error { return s.err }

func (s *stubBackend) VerifyOTP(context.Context, string, string) error { return s.err }

func (s *stubBackend) ClaimReward(_ context.Context, _ string, p RewardClaimPayload) error {
	s.claims = append(s.claims, p)
	return s.err
}

func (s *stubBackend) UserDashboard(context.Context, string, string) (*DashboardResponse, error) {
	if s.dashboard != nil {
		return s.dashboard, nil
	}
	return nil, s.err
}
