package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func newTestStripeGateway(t *testing.T, h http.HandlerFunc) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeGateway("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestStripeCreateCheckoutSession(t *testing.T) {
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "2550", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "p1", r.PostForm.Get("metadata[parcelId]"))
		assert.Equal(t, "Books", r.PostForm.Get("metadata[parcelName]"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_1"}`))
	})

	sess, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{
		AmountMinor: 2550, Currency: "usd", ProductName: "Books", ParcelID: "p1",
		SuccessURL: "https://zap.example/ok", CancelURL: "https://zap.example/no",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", sess.URL)
}

func TestStripeGetCheckoutSession(t *testing.T) {
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions/cs_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"cs_1","object":"checkout.session","payment_status":"paid",
			"payment_intent":"pi_1","amount_total":2550,"currency":"usd",
			"customer_details":{"email":"a@x.com"},
			"metadata":{"parcelId":"p1","parcelName":"Books"}}`))
	})

	sess, err := g.GetCheckoutSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, SessionPaid, sess.PaymentStatus)
	assert.Equal(t, "pi_1", sess.TransactionID)
	assert.Equal(t, int64(2550), sess.AmountTotal)
	assert.Equal(t, "a@x.com", sess.CustomerEmail)
	assert.Equal(t, "p1", sess.Metadata[MetaParcelID])
}

func TestStripeErrorsAreMapped(t *testing.T) {
	status := http.StatusNotFound
	body := `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session"}}`
	g := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	_, err := g.GetCheckoutSession(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	status = http.StatusInternalServerError
	body = `{"error":{"type":"api_error","message":"boom"}}`
	_, err = g.GetCheckoutSession(context.Background(), "cs_1")
	assert.ErrorIs(t, err, ErrGateway)
}
