package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taxi-booking/internal/models"

	"github.com/labstack/echo/v4"
)

// sign returns the hex HMAC-SHA256 of body, as the gateway signs callbacks.
func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestMockGatewayCreateSession(t *testing.T) {
	g := NewMockGateway("http://localhost:5173", "", rand.NewSource(1))
	info, err := g.CreateSession(context.Background(), models.PaymentRequest{OrderID: "order-1", Amount: 4000, Currency: "CZK"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if info.ID == "" || info.Status != models.PaymentStatusCreated {
		t.Errorf("info = %+v", info)
	}
	want := "http://localhost:5173/payment-result?mockPayment=true&orderId=order-1"
	if info.RedirectURL != want {
		t.Errorf("redirect = %q, want %q", info.RedirectURL, want)
	}

	other, _ := g.CreateSession(context.Background(), models.PaymentRequest{OrderID: "order-1"})
	if other.ID == info.ID {
		t.Error("each session needs a fresh id")
	}
}

func TestMockGatewayFixedStatus(t *testing.T) {
	g := NewMockGateway("", "failed", nil)
	for i := 0; i < 10; i++ {
		s, err := g.GetStatus(context.Background(), "p")
		if err != nil || s != models.PaymentStatusFailed {
			t.Fatalf("GetStatus = %q, %v", s, err)
		}
	}
}

func TestMockGatewayRandomStatusFavoursPaid(t *testing.T) {
	g := NewMockGateway("", "", rand.NewSource(42))
	counts := map[models.PaymentStatus]int{}
	for i := 0; i < 2000; i++ {
		s, err := g.GetStatus(context.Background(), "p")
		if err != nil {
			t.Fatal(err)
		}
		if !s.Valid() {
			t.Fatalf("invalid status %q", s)
		}
		counts[s]++
	}
	if counts[models.PaymentStatusPaid] < 1000 {
		t.Errorf("paid drawn %d/2000 times, expected a clear majority", counts[models.PaymentStatusPaid])
	}
	if !g.VerifyCallback(nil, "") {
		t.Error("mock must accept every callback")
	}
}

func TestMapGatewayState(t *testing.T) {
	tests := map[string]models.PaymentStatus{
		"CREATED":               models.PaymentStatusCreated,
		"PAYMENT_METHOD_CHOSEN": models.PaymentStatusPending,
		"AUTHORIZED":            models.PaymentStatusPending,
		"PAID":                  models.PaymentStatusPaid,
		"CANCELED":              models.PaymentStatusCanceled,
		"TIMEOUTED":             models.PaymentStatusTimedOut,
		"REFUNDED":              models.PaymentStatusRefunded,
		"PARTIALLY_REFUNDED":    models.PaymentStatusRefunded,
		"paid":                  models.PaymentStatusPaid,
		"WHATEVER":              models.PaymentStatusUnknown,
		"":                      models.PaymentStatusUnknown,
	}
	for in, want := range tests {
		if got := MapGatewayState(in); got != want {
			t.Errorf("MapGatewayState(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"order_number":"o1","payment_id":"1","state":"PAID"}`)
	sig := sign(body, "secret")

	if !VerifySignature(body, sig, "secret") {
		t.Error("valid signature rejected")
	}
	if VerifySignature(body, sig, "other") {
		t.Error("signature with wrong secret accepted")
	}
	if VerifySignature(append(body, ' '), sig, "secret") {
		t.Error("tampered body accepted")
	}
	if VerifySignature(body, "", "secret") || VerifySignature(body, "zz", "secret") {
		t.Error("empty or malformed signature accepted")
	}
}

func TestGoPayGateway(t *testing.T) {
	var created goPayCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/oauth2/token":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":1800}`))
		case r.URL.Path == "/api/payments/payment" && r.Method == http.MethodPost:
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("authorization = %q", r.Header.Get("Authorization"))
			}
			json.NewDecoder(r.Body).Decode(&created)
			w.Write([]byte(`{"id":3000006542,"state":"CREATED","gw_url":"https://gw.sandbox.gopay.com/gw/v3/abc"}`))
		case r.URL.Path == "/api/payments/payment/3000006542":
			w.Write([]byte(`{"id":3000006542,"state":"PAID"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g := NewGoPayGateway(context.Background(), GoPayConfig{
		APIURL: srv.URL, ClientID: "id", ClientSecret: "secret", GoID: 8123456789, ClientOrigin: "https://taxi.example",
	})
	info, err := g.CreateSession(context.Background(), models.PaymentRequest{OrderID: "o-9", Amount: 4000, Currency: "CZK", Description: "Taxi Prague - Brno"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if info.ID != "3000006542" || info.RedirectURL != "https://gw.sandbox.gopay.com/gw/v3/abc" || info.Status != models.PaymentStatusCreated {
		t.Errorf("info = %+v", info)
	}
	if created.Amount != 400000 || created.Target.GoID != 8123456789 || created.OrderNumber != "o-9" {
		t.Errorf("payload = %+v", created)
	}
	if !strings.Contains(created.Callback.ReturnURL, "orderId=o-9") {
		t.Errorf("return url = %q", created.Callback.ReturnURL)
	}

	status, err := g.GetStatus(context.Background(), info.ID)
	if err != nil || status != models.PaymentStatusPaid {
		t.Errorf("GetStatus = %q, %v", status, err)
	}

	if _, err := g.GetStatus(context.Background(), "missing"); !errors.Is(err, models.ErrPaymentUnavailable) {
		t.Errorf("err = %v, want ErrPaymentUnavailable", err)
	}
}

type fakeUpdater struct {
	orderID   string
	paymentID string
	status    models.PaymentStatus
	err       error
}

func (f *fakeUpdater) UpdatePaymentStatus(ctx context.Context, orderID, paymentID string, status models.PaymentStatus) error {
	f.orderID, f.paymentID, f.status = orderID, paymentID, status
	return f.err
}

func TestCallbackHandler(t *testing.T) {
	gw := NewGoPayGateway(context.Background(), GoPayConfig{APIURL: "http://unused", ClientSecret: "secret"})
	body := `{"order_number":"o-1","payment_id":"99","state":"PAID"}`

	tests := []struct {
		name       string
		signature  string
		updateErr  error
		wantCode   int
		wantStatus models.PaymentStatus
	}{
		{"verified", sign([]byte(body), "secret"), nil, http.StatusOK, models.PaymentStatusPaid},
		{"bad signature", sign([]byte(body), "nope"), nil, http.StatusUnauthorized, ""},
		{"missing signature", "", nil, http.StatusUnauthorized, ""},
		{"update failure still acknowledged", sign([]byte(body), "secret"), errors.New("db down"), http.StatusOK, models.PaymentStatusPaid},
		{"foreign payment acknowledged", sign([]byte(body), "secret"), models.ErrPaymentMismatch, http.StatusOK, models.PaymentStatusPaid},
		{"order without session acknowledged", sign([]byte(body), "secret"), models.ErrNoPaymentSession, http.StatusOK, models.PaymentStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd := &fakeUpdater{err: tt.updateErr}
			h := NewCallbackHandler(gw, upd)

			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/gopay-callback", strings.NewReader(body))
			req.Header.Set(SignatureHeader, tt.signature)
			rec := httptest.NewRecorder()
			if err := h.HandleCallback(e.NewContext(req, rec)); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if upd.status != tt.wantStatus {
				t.Errorf("status written = %q, want %q", upd.status, tt.wantStatus)
			}
			if tt.wantStatus != "" && (upd.orderID != "o-1" || upd.paymentID != "99") {
				t.Errorf("order = %q, payment = %q", upd.orderID, upd.paymentID)
			}
		})
	}
}
