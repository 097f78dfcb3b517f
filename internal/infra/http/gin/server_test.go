package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"carrental/internal/app/bookingquery"
	"carrental/internal/app/commands"
	bookingapp "carrental/internal/app/handlers/booking"
	notificationsapp "carrental/internal/app/handlers/notifications"
	paymentsapp "carrental/internal/app/handlers/payments"
	"carrental/internal/app/ledger"
	"carrental/internal/app/middleware"
	"carrental/internal/app/notify"
	"carrental/internal/app/outbox"
	apppayments "carrental/internal/app/payments"
	"carrental/internal/app/queries"
	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	domainpricing "carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/money"
	domainuser "carrental/internal/domain/user"
	"carrental/internal/infra/obs"
	"carrental/internal/infra/security"
	"carrental/internal/infra/storage/memory"
	"carrental/internal/infra/validation"
)

const paymentSecret = "test-key-secret"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	tokens *security.TokenVerifier
	signer apppayments.Signer
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	store.PutCar(&domaincars.Car{
		ID:                 "car-1",
		OwnerID:            "admin-1",
		Make:               "Maruti",
		Model:              "Swift",
		RegistrationNumber: "KA01AB1234",
		PricePerDay:        money.Money{Amount: 240000, Currency: "INR"},
	})
	store.PutUser(domainuser.Profile{ID: "user-1", Email: "asha@example.com"})
	factory := memory.Factory{Store: store}

	signer, err := apppayments.NewSigner(paymentSecret)
	require.NoError(t, err)
	tokens, err := security.NewTokenVerifier("jwt-secret")
	require.NoError(t, err)

	notifier := &notify.Notifier{Sink: notify.StoreSink{Factory: factory}}
	l := &ledger.Ledger{
		Factory:  factory,
		Quoter:   domainpricing.Quoter{Policy: domainpricing.DefaultPolicy()},
		Policy:   domainbooking.CancellationPolicy{UserCancelAfterConfirm: true},
		Encoder:  outbox.JSONEventEncoder{},
		Notifier: notifier,
	}
	reconciler := &apppayments.Reconciler{Signer: signer, Factory: factory, Ledger: l, Encoder: outbox.JSONEventEncoder{}, Notifier: notifier}

	cmds := commands.NewRegistry()
	qs := queries.NewRegistry()
	bookingapp.Register(cmds, qs, bookingapp.Deps{Ledger: l, Service: &bookingquery.Service{Factory: factory}})
	paymentsapp.Register(cmds, reconciler, nil)
	notificationsapp.Register(cmds, qs, factory)

	v := validation.New()
	cmdBus := middleware.ChainCommands(cmds,
		middleware.Validation(v),
		middleware.Authorization(apppayments.SignatureGate{Signer: signer}),
		middleware.Idempotency(memory.IdempotencyStore{Store: store}, nil, nil),
		middleware.Transaction(factory, nil),
	)
	queryBus := middleware.ChainQueries(qs, middleware.QueryValidation(v))

	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Commands: cmdBus, Queries: queryBus},
		Payment:        PaymentHandler{Commands: cmdBus},
		Notification:   NotificationHandler{Commands: cmdBus, Queries: queryBus},
		AuthMiddleware: AuthMiddleware{Verifier: tokens}.Handle,
	})
	return &testServer{t: t, router: router, tokens: tokens, signer: signer, store: store}
}

func (s *testServer) token(id string, role domainuser.Role) string {
	s.t.Helper()
	raw, err := s.tokens.Issue(domainuser.Principal{ID: id, Role: role}, time.Hour)
	require.NoError(s.t, err)
	return raw
}

func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func rentalWindow(hours int) (string, string) {
	pickup := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	return pickup.Format(time.RFC3339), pickup.Add(time.Duration(hours) * time.Hour).Format(time.RFC3339)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/livez", "", nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestPreviewMatchesCreatedPrice(t *testing.T) {
	s := newTestServer(t)
	pickup, ret := rentalWindow(2)
	body := map[string]any{"car_id": "car-1", "pickup_at": pickup, "return_at": ret}

	rec := s.do(http.MethodPost, "/api/v1/bookings/preview", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[map[string]any](t, rec)
	price := preview["price"].(map[string]any)
	require.EqualValues(t, 21000, price["total_amount"].(map[string]any)["amount"])
	require.Equal(t, "Maruti Swift", preview["car"].(map[string]any)["name"])

	rec = s.do(http.MethodPost, "/api/v1/bookings", s.token("user-1", domainuser.RoleUser), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	require.Equal(t, price, created["price"])
	require.Equal(t, "pending_payment", created["status"])
}

func TestCreateRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	pickup, ret := rentalWindow(2)
	rec := s.do(http.MethodPost, "/api/v1/bookings", "", map[string]any{"car_id": "car-1", "pickup_at": pickup, "return_at": ret})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthenticated", decode[errorResponse](t, rec).Code)

	rec = s.do(http.MethodPost, "/api/v1/bookings", "not-a-jwt", map[string]any{"car_id": "car-1"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidationErrorNamesField(t *testing.T) {
	s := newTestServer(t)
	pickup, _ := rentalWindow(2)
	rec := s.do(http.MethodPost, "/api/v1/bookings", s.token("user-1", domainuser.RoleUser),
		map[string]any{"car_id": "car-1", "pickup_at": pickup, "return_at": pickup})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	require.Equal(t, "return_at", resp.Field)
	require.Equal(t, "invalid_return_at", resp.Code)

	rec = s.do(http.MethodPost, "/api/v1/bookings/preview", "", map[string]any{"car_id": "missing", "pickup_at": pickup, "return_at": time.Now().Add(100 * time.Hour).Format(time.RFC3339)})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "car_not_found", decode[errorResponse](t, rec).Code)
}

func TestCreateReplaysIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	pickup, ret := rentalWindow(3)
	token := s.token("user-1", domainuser.RoleUser)
	body := map[string]any{"car_id": "car-1", "pickup_at": pickup, "return_at": ret}

	first := s.do(http.MethodPost, "/api/v1/bookings", token, body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := s.do(http.MethodPost, "/api/v1/bookings", token, body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, decode[map[string]any](t, first)["id"], decode[map[string]any](t, second)["id"])
	require.Equal(t, 1, s.store.BookingCount())
}

func TestBookingDetailAndOwnership(t *testing.T) {
	s := newTestServer(t)
	pickup, ret := rentalWindow(2)
	owner := s.token("user-1", domainuser.RoleUser)
	rec := s.do(http.MethodPost, "/api/v1/bookings", owner, map[string]any{"car_id": "car-1", "pickup_at": pickup, "return_at": ret})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = s.do(http.MethodGet, "/api/v1/bookings/"+id, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detail := decode[map[string]any](t, rec)
	require.Equal(t, "asha", detail["user"].(map[string]any)["display_name"])
	require.Nil(t, detail["car"].(map[string]any)["car_image"])

	rec = s.do(http.MethodGet, "/api/v1/bookings/"+id, s.token("user-2", domainuser.RoleUser), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/admin/bookings", s.token("admin-1", domainuser.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[map[string]any](t, rec)["items"], 1)

	rec = s.do(http.MethodGet, "/api/v1/admin/bookings", owner, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/bookings/missing", owner, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModifyAndCancel(t *testing.T) {
	s := newTestServer(t)
	pickup, ret := rentalWindow(2)
	owner := s.token("user-1", domainuser.RoleUser)
	rec := s.do(http.MethodPost, "/api/v1/bookings", owner, map[string]any{"car_id": "car-1", "pickup_at": pickup, "return_at": ret})
	id := decode[map[string]any](t, rec)["id"].(string)

	_, longer := rentalWindow(4)
	rec = s.do(http.MethodPut, "/api/v1/bookings/"+id, owner, map[string]any{"pickup_at": pickup, "return_at": longer, "with_driver": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	modified := decode[map[string]any](t, rec)
	require.Equal(t, true, modified["with_driver"])
	require.EqualValues(t, 4, modified["price"].(map[string]any)["duration_hours"])

	rec = s.do(http.MethodPost, "/api/v1/bookings/"+id+"/cancel", s.token("user-2", domainuser.RoleUser), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/bookings/"+id+"/cancel", owner, map[string]any{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "cancelled", decode[map[string]any](t, rec)["status"])

	rec = s.do(http.MethodPost, "/api/v1/bookings/"+id+"/cancel", owner, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "already_cancelled", decode[errorResponse](t, rec).Code)
}

func TestPaymentVerifyConfirmsAndNotifies(t *testing.T) {
	s := newTestServer(t)
	pickup, ret := rentalWindow(2)
	token := s.token("user-1", domainuser.RoleUser)
	draft := map[string]any{"car_id": "car-1", "pickup_at": pickup, "return_at": ret}

	rec := s.do(http.MethodPost, "/api/v1/payments/verify", token, map[string]any{
		"order_id": "order_1", "payment_id": "pay_1", "signature": s.signer.Sign("order_1", "pay_2"), "booking": draft,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "signature_mismatch", decode[errorResponse](t, rec).Code)
	require.Zero(t, s.store.BookingCount())

	rec = s.do(http.MethodPost, "/api/v1/payments/verify", token, map[string]any{
		"order_id": "order_1", "payment_id": "pay_1", "signature": s.signer.Sign("order_1", "pay_1"), "booking": draft,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode[map[string]any](t, rec)
	require.Equal(t, "confirmed", outcome["booking"].(map[string]any)["status"])
	require.Equal(t, "paid", outcome["transaction"].(map[string]any)["status"])

	rec = s.do(http.MethodGet, "/api/v1/me/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[map[string]any](t, rec)
	require.EqualValues(t, 1, inbox["unread"])
	note := inbox["items"].([]any)[0].(map[string]any)
	require.Equal(t, "Payment Confirmed", note["title"])

	rec = s.do(http.MethodPost, "/api/v1/me/notifications/"+note["id"].(string)+"/read", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/me/notifications", token, nil)
	require.EqualValues(t, 0, decode[map[string]any](t, rec)["unread"])

	rec = s.do(http.MethodPost, "/api/v1/me/notifications/unknown/read", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentFailureMarksBooking(t *testing.T) {
	s := newTestServer(t)
	pickup, ret := rentalWindow(2)
	token := s.token("user-1", domainuser.RoleUser)
	rec := s.do(http.MethodPost, "/api/v1/bookings", token, map[string]any{"car_id": "car-1", "pickup_at": pickup, "return_at": ret})
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = s.do(http.MethodPost, "/api/v1/payments/failure", token, map[string]any{
		"booking_id": id, "order_id": "order_9", "payment_id": "pay_9", "signature": s.signer.Sign("order_9", "pay_9"), "reason": "card declined",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode[map[string]any](t, rec)
	require.Equal(t, "payment_failed", outcome["booking"].(map[string]any)["status"])
	require.Equal(t, "failed", outcome["transaction"].(map[string]any)["status"])
}

type stubVerifier struct{ p domainuser.Principal }

func (s stubVerifier) Verify(string) (domainuser.Principal, error) { return s.p, nil }

func TestAuthMiddlewareSetsPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware{Verifier: stubVerifier{p: domainuser.Principal{ID: "u-9", Role: domainuser.RoleAdmin}}}.Handle)
	router.GET("/who", func(c *gin.Context) {
		p, ok := currentPrincipal(c)
		require.True(t, ok)
		c.String(http.StatusOK, p.ID+"/"+c.GetString("user_id"))
	})
	req := httptest.NewRequest(http.MethodGet, "/who", nil).WithContext(context.Background())
	req.Header.Set("Authorization", "bearer abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "u-9/u-9", rec.Body.String())
}

func TestExtractBearerToken(t *testing.T) {
	require.Equal(t, "abc", extractBearerToken("Bearer abc"))
	require.Equal(t, "abc", extractBearerToken("bearer  abc "))
	require.Empty(t, extractBearerToken("Basic abc"))
	require.Empty(t, extractBearerToken(""))
}
