package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/internal/escrow"
	"github.com/sokonihq/sokoni-backend/internal/orders"
	"github.com/sokonihq/sokoni-backend/internal/wallet"
	pkgAuth "github.com/sokonihq/sokoni-backend/pkg/auth"
	"github.com/sokonihq/sokoni-backend/pkg/config"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
	"gorm.io/gorm"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrdersService struct {
	getFn func(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.UserRole) (*models.Order, error)
}

func (s stubOrdersService) Create(ctx context.Context, input orders.CreateInput) (*orders.CreateResult, error) {
	panic("unimplemented")
}

func (s stubOrdersService) Get(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.UserRole) (*models.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID, actorID, actorRole)
	}
	return &models.Order{}, nil
}

func (s stubOrdersService) List(ctx context.Context, input orders.ListInput) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s stubOrdersService) UpdateTrackingStatus(ctx context.Context, orderID uuid.UUID, input orders.TrackingInput) (*models.Order, error) {
	panic("unimplemented")
}

func (s stubOrdersService) ConfirmDelivery(ctx context.Context, orderID uuid.UUID, input orders.ConfirmDeliveryInput) (*models.Order, error) {
	panic("unimplemented")
}

func (s stubOrdersService) Cancel(ctx context.Context, orderID uuid.UUID, input orders.CancelInput) (*models.Order, error) {
	panic("unimplemented")
}

func (s stubOrdersService) ReportIssue(ctx context.Context, orderID uuid.UUID, input orders.ReportIssueInput) (*models.Order, error) {
	panic("unimplemented")
}

func (s stubOrdersService) DecidePayment(ctx context.Context, orderID uuid.UUID, input orders.PaymentDecisionInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (s stubOrdersService) ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	return 0, nil
}

type stubEscrowService struct{}

func (stubEscrowService) Hold(ctx context.Context, tx *gorm.DB, input escrow.HoldInput) (*models.EscrowTransaction, error) {
	panic("unimplemented")
}

func (stubEscrowService) Release(ctx context.Context, input escrow.ResolveInput) (*models.EscrowTransaction, error) {
	return &models.EscrowTransaction{}, nil
}

func (stubEscrowService) Refund(ctx context.Context, input escrow.ResolveInput) (*models.EscrowTransaction, error) {
	return &models.EscrowTransaction{}, nil
}

func (stubEscrowService) List(ctx context.Context, status *enums.EscrowStatus, limit int) ([]models.EscrowTransaction, error) {
	return nil, nil
}

type stubWalletService struct{}

func (stubWalletService) Credit(ctx context.Context, tx *gorm.DB, input wallet.CreditInput) (*models.WalletTransaction, error) {
	panic("unimplemented")
}

func (stubWalletService) Balance(ctx context.Context, userID uuid.UUID) (*wallet.Statement, error) {
	return &wallet.Statement{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:  cfg,
		Logger:  logg,
		DB:      stubPinger{},
		Redis:   nil,
		Orders:  stubOrdersService{},
		Escrow:  stubEscrowService{},
		Wallets: stubWalletService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for health live got %d", resp.Code)
	}
}

func TestOrdersRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrdersListSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for order list got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	buyer := httptest.NewRequest(http.MethodGet, "/api/admin/escrow", nil)
	buyer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/escrow", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestWalletRequiresAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSeller))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for wallet balance got %d", resp.Code)
	}
}
