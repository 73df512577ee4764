package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/handler"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/router"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/sqlite"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/worker"
)

const jwtSecret = "e2e-secret"

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo       *echo.Echo
	DB         *sqlx.DB
	Relay      *worker.OutboxRelay
	Dispatcher *recordingDispatcher
}

var testServer *TestServer

// recordingDispatcher は送られた通知の種類を記録する
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notification.Kind
}

func (d *recordingDispatcher) Send(_ context.Context, kind notification.Kind, _ string, _ []byte) notification.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, kind)
	return notification.Result{Delivered: true, ID: fmt.Sprintf("msg-%d", len(d.sent))}
}

func (d *recordingDispatcher) Kinds() []notification.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Kind(nil), d.sent...)
}

// TestMain はE2Eテストのエントリポイント
// パッケージ全体で1回だけ組込みストアとサーバーを用意する
func TestMain(m *testing.M) {
	logger.Set(zap.NewNop())

	db, err := sqlite.NewInMemory(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "組込みストアを開けません:", err)
		os.Exit(1)
	}

	mtr := metrics.NewWithRegistry(prometheus.NewRegistry())

	serviceRepo := postgres.NewServiceRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	citizenRepo := postgres.NewCitizenRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	txManager := postgres.NewTxManager(db)

	dispatcher := &recordingDispatcher{}
	relay := worker.NewOutboxRelay(outboxRepo, dispatcher, worker.RelayConfig{
		Interval: time.Hour, BatchSize: 100, MaxAttempts: 3, BaseBackoff: time.Second,
	}, worker.WithRelayMetrics(mtr))

	reservationService := application.NewReservationService(
		txManager, reservationRepo, slotRepo, citizenRepo, ledgerRepo, outboxRepo,
		application.WithOutboxNotifier(relay), application.WithMetrics(mtr),
	)

	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e)
	router.Register(e, router.Handlers{
		Health:       handler.NewHealthHandler(db),
		Catalog:      handler.NewCatalogHandler(application.NewCatalogService(serviceRepo)),
		Slot:         handler.NewSlotHandler(application.NewSlotService(slotRepo, serviceRepo)),
		Reservation:  handler.NewReservationHandler(reservationService),
		Citizen:      handler.NewCitizenHandler(application.NewCitizenService(citizenRepo)),
		Notification: handler.NewNotificationHandler(application.NewNotificationService(outboxRepo)),
	}, router.Options{JWTSecret: jwtSecret, Metrics: mtr})

	testServer = &TestServer{Echo: e, DB: db, Relay: relay, Dispatcher: dispatcher}

	code := m.Run()

	db.Close()
	os.Exit(code)
}

func getTestServer(t *testing.T) *TestServer {
	t.Helper()
	if testServer == nil {
		t.Skip("テスト環境が利用できません")
	}
	return testServer
}

// Token は指定ロールのアクセストークンを発行する
func (s *TestServer) Token(t *testing.T, subject string, role application.Role) string {
	t.Helper()
	tok, err := middleware.NewToken(jwtSecret, subject, role, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("トークン発行に失敗: %v", err)
	}
	return tok
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}
