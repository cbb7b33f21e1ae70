package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/identity"
	"github.com/ariefcatur/go-placement-payments/internal/orchestrator"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/provider"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
	"github.com/ariefcatur/go-placement-payments/internal/storetest"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeLinks struct{}

func (fakeLinks) Supports(m payments.Method) bool { return m != payments.MethodBankTransfer }

func (fakeLinks) GenerateLink(_ context.Context, req provider.LinkRequest) (string, error) {
	return "https://pay.example/" + req.Reference, nil
}

type testAPI struct {
	srv    *httptest.Server
	ledger *storetest.MemLedger
	res    *storetest.MemReservations
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ledger := storetest.NewLedger()
	res := storetest.NewReservations()
	ledger.Reservations = res
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &orchestrator.Service{
		Payments:                 ledger,
		Reservations:             res,
		Users:                    storetest.NewUsers(identity.User{ID: "u-1", FirstName: "Moussa", LastName: "Diop", Email: "moussa@example.sn"}),
		Providers:                fakeLinks{},
		Refs:                     payments.NewReferenceGenerator(time.UTC),
		Log:                      log,
		DefaultMethod:            payments.MethodWave,
		DefaultReservationAmount: 5000,
	}

	router := NewRouter(NewAuth(testSecret))
	router.Route("/api/v1", func(r chi.Router) {
		(&PaymentsHandler{Svc: svc, FrontendURL: "https://front.example/", Log: log}).Register(r)
		(&ReservationsHandler{Svc: svc, Log: log}).Register(r)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, ledger: ledger, res: res}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	claims := Claims{Role: role, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type result struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testAPI) call(t *testing.T, method, path, bearer string, body any) (int, result) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out result
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func decodeData[T any](t *testing.T, r result) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v))
	return v
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreatePayment(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]any{"amount": 7500, "method": "OM"}

	code, _ := api.call(t, http.MethodPost, "/api/v1/payments", "", body)
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.call(t, http.MethodPost, "/api/v1/payments", "not-a-jwt", body)
	require.Equal(t, http.StatusUnauthorized, code)

	code, res := api.call(t, http.MethodPost, "/api/v1/payments", token(t, "u-1", "user"), body)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, res.Success)
	got := decodeData[paymentResp](t, res)
	require.Equal(t, payments.StatusPending, got.Payment.Status)
	require.Equal(t, "u-1", got.Payment.UserID)
	require.Equal(t, "Moussa Diop", got.Payment.Client)
	require.Equal(t, "https://pay.example/"+got.Payment.Reference, got.PaymentLink)

	code, res = api.call(t, http.MethodPost, "/api/v1/payments", token(t, "u-1", "user"), map[string]any{"amount": 0})
	require.Equal(t, http.StatusBadRequest, code)
	require.False(t, res.Success)
	require.Contains(t, res.Message, "amount")
}

func TestProcessReservationPayment(t *testing.T) {
	api := newTestAPI(t)
	code, res := api.call(t, http.MethodPost, "/api/v1/reservations", "", map[string]any{
		"name": "Awa", "email": "awa@example.sn", "startDate": "2025-06-01T09:00:00Z", "address": "Dakar",
	})
	require.Equal(t, http.StatusCreated, code)
	r := decodeData[reservations.Reservation](t, res)
	require.Equal(t, int64(5000), r.Amount)

	body := map[string]any{"reservationId": r.ID, "paymentMethod": "mobile_money"}
	code, res = api.call(t, http.MethodPost, "/api/v1/payments/process", "", body)
	require.Equal(t, http.StatusCreated, code)
	p := decodeData[paymentResp](t, res).Payment
	require.Equal(t, payments.MethodWave, p.Method)
	require.Equal(t, r.ID, p.ReservationID)

	code, _ = api.call(t, http.MethodPost, "/api/v1/payments/process", "", body)
	require.Equal(t, http.StatusConflict, code)

	code, res = api.call(t, http.MethodGet, "/api/v1/payments/verify/"+p.Reference, "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, p.ID, decodeData[payments.Payment](t, res).ID)

	code, _ = api.call(t, http.MethodPost, "/api/v1/payments/callback", "", map[string]any{
		"reference": p.Reference, "status": "COMPLETED", "transactionId": "TXN-1",
	})
	require.Equal(t, http.StatusOK, code)

	code, res = api.call(t, http.MethodGet, "/api/v1/reservations/track?id="+r.ID+"&email=awa@example.sn", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, reservations.StatusConfirmed, decodeData[reservations.Reservation](t, res).Status)
}

func TestJSONCallbackErrors(t *testing.T) {
	api := newTestAPI(t)
	code, _ := api.call(t, http.MethodPost, "/api/v1/payments/callback", "", map[string]any{"reference": "PAY-NOPE", "status": "COMPLETED"})
	require.Equal(t, http.StatusNotFound, code)

	code, _ = api.call(t, http.MethodPost, "/api/v1/payments/callback", "", map[string]any{"reference": "PAY-NOPE", "status": "MAYBE"})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = api.call(t, http.MethodPost, "/api/v1/payments/callback", "", map[string]any{"status": "COMPLETED"})
	require.Equal(t, http.StatusBadRequest, code)
}

func noFollow() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func redirectQuery(t *testing.T, api *testAPI, method, path string) url.Values {
	t.Helper()
	req, err := http.NewRequest(method, api.srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := noFollow().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(loc.String(), "https://front.example/"), loc.String())
	require.NotContains(t, loc.RawQuery, "+")
	return loc.Query()
}

func TestProviderRedirects(t *testing.T) {
	api := newTestAPI(t)
	admin := token(t, "admin-1", identity.RoleAdmin)
	_, res := api.call(t, http.MethodPost, "/api/v1/payments", admin, map[string]any{"amount": 1000, "client": "c"})
	ref := decodeData[paymentResp](t, res).Payment.Reference

	q := redirectQuery(t, api, http.MethodGet, "/api/v1/payments/callback/success-wave")
	require.Equal(t, "error", q.Get("status"))
	require.Equal(t, msgMissingParams, q.Get("message"))

	q = redirectQuery(t, api, http.MethodGet, "/api/v1/payments/callback/success-wave?reference=PAY-NOPE")
	require.Equal(t, msgUnknownRef, q.Get("message"))

	q = redirectQuery(t, api, http.MethodGet, "/api/v1/payments/callback/success-wave?reference="+url.QueryEscape(ref))
	require.Equal(t, "success", q.Get("status"))
	require.Equal(t, msgPaid, q.Get("message"))

	// replay of the same outcome
	q = redirectQuery(t, api, http.MethodPost, "/api/v1/payments/callback/success-om?reference="+url.QueryEscape(ref))
	require.Equal(t, "success", q.Get("status"))

	// conflicting outcome on a settled payment
	q = redirectQuery(t, api, http.MethodGet, "/api/v1/payments/callback/error-wave?reference="+url.QueryEscape(ref))
	require.Equal(t, "error", q.Get("status"))
	require.Equal(t, msgProcessing, q.Get("message"))

	got, err := api.ledger.FindByReference(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, payments.StatusCompleted, got.Status)
}

func TestProviderRedirect_Failure(t *testing.T) {
	api := newTestAPI(t)
	_, res := api.call(t, http.MethodPost, "/api/v1/payments", token(t, "u-1", "user"), map[string]any{"amount": 1000})
	ref := decodeData[paymentResp](t, res).Payment.Reference

	q := redirectQuery(t, api, http.MethodGet, "/api/v1/payments/callback/error-om?reference="+url.QueryEscape(ref))
	require.Equal(t, "error", q.Get("status"))
	require.Equal(t, msgFailed, q.Get("message"))

	q = redirectQuery(t, api, http.MethodGet, "/api/v1/payments/callback/error-om?reference=PAY-NOPE")
	require.Equal(t, "error", q.Get("status"))
	require.Equal(t, msgUnknownRefOnError, q.Get("message"))
}

func TestPaymentAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	user := token(t, "u-1", "user")
	admin := token(t, "admin-1", identity.RoleAdmin)
	_, res := api.call(t, http.MethodPost, "/api/v1/payments", user, map[string]any{"amount": 1000})
	p := decodeData[paymentResp](t, res).Payment

	code, _ := api.call(t, http.MethodPut, "/api/v1/payments/"+p.ID+"/status", user, map[string]any{"status": "COMPLETED"})
	require.Equal(t, http.StatusForbidden, code)

	code, _ = api.call(t, http.MethodPut, "/api/v1/payments/"+p.ID+"/status", admin, map[string]any{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, code)

	code, _ = api.call(t, http.MethodPost, "/api/v1/payments/"+p.Reference+"/cancel", user, nil)
	require.Equal(t, http.StatusConflict, code)

	code, res = api.call(t, http.MethodPost, "/api/v1/payments/"+p.Reference+"/refund", admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, payments.StatusRefunded, decodeData[payments.Payment](t, res).Status)

	code, res = api.call(t, http.MethodGet, "/api/v1/payments/user/u-1", user, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, decodeData[[]payments.Payment](t, res), 1)

	code, _ = api.call(t, http.MethodGet, "/api/v1/payments/user/u-2", user, nil)
	require.Equal(t, http.StatusForbidden, code)
}

func TestReservationRoutes(t *testing.T) {
	api := newTestAPI(t)
	user := token(t, "u-1", "user")
	code, res := api.call(t, http.MethodPost, "/api/v1/reservations", user, map[string]any{
		"startDate": "2025-06-01T09:00:00Z", "address": "Saint-Louis", "amount": 8000,
	})
	require.Equal(t, http.StatusCreated, code)
	r := decodeData[reservations.Reservation](t, res)
	require.Equal(t, "moussa@example.sn", r.ClientEmail)

	code, _ = api.call(t, http.MethodGet, "/api/v1/reservations/"+r.ID, "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = api.call(t, http.MethodGet, "/api/v1/reservations/"+r.ID, user, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = api.call(t, http.MethodGet, "/api/v1/reservations/track?id="+r.ID+"&email=other@example.sn", "", nil)
	require.Equal(t, http.StatusForbidden, code)

	code, _ = api.call(t, http.MethodPost, "/api/v1/reservations", "", map[string]any{"address": "Dakar"})
	require.Equal(t, http.StatusBadRequest, code)

	admin := token(t, "admin-1", identity.RoleAdmin)
	code, res = api.call(t, http.MethodPatch, "/api/v1/reservations/"+r.ID+"/status", admin, map[string]any{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, reservations.StatusCancelled, decodeData[reservations.Reservation](t, res).Status)

	code, _ = api.call(t, http.MethodPatch, "/api/v1/reservations/"+r.ID+"/status", admin, map[string]any{"status": "DONE"})
	require.Equal(t, http.StatusBadRequest, code)

	code, res = api.call(t, http.MethodGet, "/api/v1/reservations/user/u-1", user, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, decodeData[[]reservations.Reservation](t, res), 1)
}
