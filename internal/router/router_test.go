package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parcel-shipping/internal/auth"
	"github.com/iliyamo/parcel-shipping/internal/handler"
	"github.com/iliyamo/parcel-shipping/internal/model"
	"github.com/iliyamo/parcel-shipping/internal/payment"
	"github.com/iliyamo/parcel-shipping/internal/repository/memstore"
)

type stubGateway struct {
	mu       sync.Mutex
	sessions map[string]*payment.CheckoutSession
	lastReq  payment.CheckoutRequest
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastReq = req
	return &payment.CheckoutSession{ID: "cs_new", URL: "https://pay.example/cs_new"}, nil
}

func (g *stubGateway) GetCheckoutSession(ctx context.Context, id string) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// tokens maps bearer tokens straight to emails.
var tokens = auth.VerifierFunc(func(ctx context.Context, token string) (string, error) {
	switch token {
	case "token-a":
		return "a@x.com", nil
	case "token-b":
		return "b@x.com", nil
	case "token-admin":
		return "admin@x.com", nil
	}
	return "", auth.ErrUnauthorized
})

type testApp struct {
	e     *echo.Echo
	store *memstore.Store
	gw    *stubGateway
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := memstore.New()
	gw := &stubGateway{sessions: map[string]*payment.CheckoutSession{}}
	rec := payment.NewReconciler(gw, store.Payments(), nil, nil)

	e := echo.New()
	RegisterRoutes(e)
	RegisterParcels(e, handler.NewParcelHandler(store.Parcels()))
	RegisterPayments(e, handler.NewPaymentHandler(store.Parcels(), store.Payments(),
		payment.NewInitiator(gw, "https://zap.example"), rec), tokens)
	RegisterUsers(e, handler.NewUserHandler(store.Users()))
	RegisterRiders(e, handler.NewRiderHandler(store.Riders(), store.Users()), tokens, store.Users())
	return &testApp{e: e, store: store, gw: gw}
}

func (a *testApp) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (a *testApp) createParcel(t *testing.T, body string) string {
	t.Helper()
	rec := a.do(http.MethodPost, "/parcels", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		InsertedID string `json:"insertedId"`
	}
	decode(t, rec, &out)
	require.NotEmpty(t, out.InsertedID)
	return out.InsertedID
}

func TestWelcomeAndHealth(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/", "", "").Code)
	rec := app.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCreatedParcelListedFirst(t *testing.T) {
	app := newTestApp(t)
	app.createParcel(t, `{"senderEmail":"a@x.com","cost":5,"parcelName":"older"}`)
	app.createParcel(t, `{"senderEmail":"b@x.com","cost":7}`)
	id := app.createParcel(t, `{"senderEmail":"a@x.com","cost":10}`)

	rec := app.do(http.MethodGet, "/parcels?email=a@x.com", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []model.Parcel
	decode(t, rec, &items)
	require.Len(t, items, 2)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, model.PaymentUnpaid, items[0].PaymentStatus)
	assert.Nil(t, items[0].TrackingID)
}

func TestParcelValidationAndLifecycle(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/parcels", `{"senderEmail":"a@x.com","cost":"ten"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/parcels", `{"cost":10}`, "").Code)

	id := app.createParcel(t, `{"senderEmail":"a@x.com","cost":10,"parcelType":"document","receiverName":"Bo"}`)
	rec := app.do(http.MethodGet, "/parcels/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p model.Parcel
	decode(t, rec, &p)
	assert.Equal(t, "Bo", p.ReceiverName)

	rec = app.do(http.MethodDelete, "/parcels/"+id, "", "")
	assert.JSONEq(t, `{"acknowledged":true,"deletedCount":1}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/parcels/"+id, "", "").Code)
}

func TestPaymentsRequireMatchingIdentity(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/payments?email=a@x.com", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/payments?email=a@x.com", "", "forged").Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/payments?email=a@x.com", "", "token-b").Code)

	rec := app.do(http.MethodGet, "/payments?email=a@x.com", "", "token-a")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCheckoutAndReconcileFlow(t *testing.T) {
	app := newTestApp(t)
	id := app.createParcel(t, `{"senderEmail":"a@x.com","cost":25.5,"parcelName":"Books"}`)

	rec := app.do(http.MethodPost, "/create-checkout-session",
		`{"cost":25.50,"parcelName":"Books","parcelId":"`+id+`","sellerEmail":"a@x.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"url":"https://pay.example/cs_new"}`, rec.Body.String())
	assert.Equal(t, int64(2550), app.gw.lastReq.AmountMinor)

	app.gw.sessions["cs_new"] = &payment.CheckoutSession{
		ID: "cs_new", PaymentStatus: payment.SessionPaid, TransactionID: "pi_1",
		AmountTotal: 2550, Currency: "usd", CustomerEmail: "a@x.com",
		Metadata: map[string]string{payment.MetaParcelID: id, payment.MetaParcelName: "Books"},
	}

	rec = app.do(http.MethodPatch, "/payment-success/cs_new", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first payment.Receipt
	decode(t, rec, &first)
	assert.False(t, first.AlreadyProcessed)
	assert.Regexp(t, `^TRK-[0-9A-F]{8}$`, first.TrackingID)
	require.NotNil(t, first.Payment)
	assert.InDelta(t, 25.50, first.Payment.Amount, 1e-9)

	rec = app.do(http.MethodPatch, "/payment-success/cs_new", "", "")
	var second payment.Receipt
	decode(t, rec, &second)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.TrackingID, second.TrackingID)

	rec = app.do(http.MethodGet, "/payments", "", "token-a")
	var payments []model.Payment
	decode(t, rec, &payments)
	require.Len(t, payments, 1)
	assert.Equal(t, id, payments[0].ParcelID)

	// a paid parcel cannot be checked out again
	rec = app.do(http.MethodPost, "/create-checkout-session",
		`{"cost":25.50,"parcelName":"Books","parcelId":"`+id+`"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutRejectsBadInput(t *testing.T) {
	app := newTestApp(t)
	id := app.createParcel(t, `{"senderEmail":"a@x.com","cost":0}`)

	cases := map[string]struct {
		body string
		code int
	}{
		"missing cost":   {`{"parcelId":"` + id + `"}`, http.StatusBadRequest},
		"zero cost":      {`{"cost":0,"parcelId":"` + id + `"}`, http.StatusBadRequest},
		"non-numeric":    {`{"cost":"abc","parcelId":"` + id + `"}`, http.StatusBadRequest},
		"unknown parcel": {`{"cost":10,"parcelId":"nope"}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.code, app.do(http.MethodPost, "/create-checkout-session", tc.body, "").Code)
		})
	}
}

func TestReconcileUnpaidSessionIsExplicit(t *testing.T) {
	app := newTestApp(t)
	id := app.createParcel(t, `{"senderEmail":"a@x.com","cost":10}`)
	app.gw.sessions["cs_open"] = &payment.CheckoutSession{
		ID: "cs_open", PaymentStatus: "unpaid",
		Metadata: map[string]string{payment.MetaParcelID: id},
	}

	rec := app.do(http.MethodPatch, "/payment-success/cs_open", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"payment not completed","sessionId":"cs_open","paymentStatus":"unpaid"}`, rec.Body.String())

	rec = app.do(http.MethodGet, "/parcels/"+id, "", "")
	var p model.Parcel
	decode(t, rec, &p)
	assert.Equal(t, model.PaymentUnpaid, p.PaymentStatus)

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPatch, "/payment-success/cs_unknown", "", "").Code)
}

func TestReconcileAfterParcelDeletedRecordsCharge(t *testing.T) {
	app := newTestApp(t)
	id := app.createParcel(t, `{"senderEmail":"a@x.com","cost":25.5,"parcelName":"Books"}`)
	require.Equal(t, http.StatusOK, app.do(http.MethodDelete, "/parcels/"+id, "", "").Code)

	app.gw.sessions["cs_x"] = &payment.CheckoutSession{
		ID: "cs_x", PaymentStatus: payment.SessionPaid, TransactionID: "pi_x",
		AmountTotal: 2550, Currency: "usd", CustomerEmail: "a@x.com",
		Metadata: map[string]string{payment.MetaParcelID: id, payment.MetaParcelName: "Books"},
	}

	rec := app.do(http.MethodPatch, "/payment-success/cs_x", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rc payment.Receipt
	decode(t, rec, &rc)
	assert.False(t, rc.AlreadyProcessed)
	assert.False(t, rc.ParcelModified)

	saved, err := app.store.Payments().GetByTransactionID(context.Background(), "pi_x")
	require.NoError(t, err)
	assert.Equal(t, id, saved.ParcelID)
}

func TestUsersAndRiders(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/users", `{"email":"Rider@x.com","role":"admin"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = app.do(http.MethodPost, "/users", `{"email":"rider@x.com"}`, "")
	assert.JSONEq(t, `{"message":"user exists","inserted":false}`, rec.Body.String())
	rec = app.do(http.MethodGet, "/users/rider@x.com/role", "", "")
	assert.JSONEq(t, `{"role":"user"}`, rec.Body.String())

	rec = app.do(http.MethodPost, "/riders", `{"name":"Rafi","email":"rider@x.com","age":25,"region":"Dhaka","status":"active"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		InsertedID string `json:"insertedId"`
	}
	decode(t, rec, &created)

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/riders?status=pending", "", "").Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/riders?status=pending", "", "token-a").Code)

	_, err := app.store.Users().CreateIfAbsent(context.Background(), &model.User{Email: "admin@x.com", Role: model.RoleAdmin})
	require.NoError(t, err)

	rec = app.do(http.MethodGet, "/riders?status=pending", "", "token-admin")
	require.Equal(t, http.StatusOK, rec.Code)
	var riders []model.Rider
	decode(t, rec, &riders)
	require.Len(t, riders, 1)
	assert.Equal(t, model.RiderPending, riders[0].Status)

	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPatch, "/riders/"+created.InsertedID, `{"status":"pending"}`, "token-admin").Code)
	rec = app.do(http.MethodPatch, "/riders/"+created.InsertedID, `{"status":"active"}`, "token-admin")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, "/users/rider@x.com/role", "", "")
	assert.JSONEq(t, `{"role":"rider"}`, rec.Body.String())
}
