package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taxi-booking/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// GoPayConfig holds the gateway credentials and URLs.
type GoPayConfig struct {
	APIURL          string
	ClientID        string
	ClientSecret    string
	GoID            int64
	ClientOrigin    string
	NotificationURL string
	Lang            string
}

// GoPayGateway talks to the GoPay REST API. The OAuth2 client-credentials
// token is fetched and refreshed by the oauth2 transport.
type GoPayGateway struct {
	cfg        GoPayConfig
	httpClient *http.Client
}

// NewGoPayGateway builds a gateway whose HTTP client authenticates every call.
func NewGoPayGateway(ctx context.Context, cfg GoPayConfig) *GoPayGateway {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Lang == "" {
		cfg.Lang = "CS"
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.APIURL + "/api/oauth2/token",
		Scopes:       []string{"payment-create"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	base := &http.Client{Timeout: 20 * time.Second}
	client := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	client.Timeout = 20 * time.Second
	return &GoPayGateway{cfg: cfg, httpClient: client}
}

func (g *GoPayGateway) Mock() bool { return false }

type goPayTarget struct {
	Type string `json:"type"`
	GoID int64  `json:"goid"`
}

type goPayContact struct {
	FirstName   string `json:"first_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type goPayPayer struct {
	Contact goPayContact `json:"contact"`
}

type goPayItem struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	Count  int    `json:"count"`
}

type goPayCallbackURLs struct {
	ReturnURL       string `json:"return_url"`
	NotificationURL string `json:"notification_url,omitempty"`
}

type goPayCreateRequest struct {
	Payer            goPayPayer        `json:"payer"`
	Target           goPayTarget       `json:"target"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	OrderNumber      string            `json:"order_number"`
	OrderDescription string            `json:"order_description"`
	Items            []goPayItem       `json:"items"`
	Callback         goPayCallbackURLs `json:"callback"`
	Lang             string            `json:"lang"`
}

type goPayPayment struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
	GwURL string `json:"gw_url"`
}

// CreateSession creates a payment. GoPay amounts are in hundredths.
func (g *GoPayGateway) CreateSession(ctx context.Context, req models.PaymentRequest) (*models.PaymentInfo, error) {
	amount := int64(req.Amount) * 100
	payload := goPayCreateRequest{
		Payer: goPayPayer{Contact: goPayContact{
			FirstName:   req.CustomerName,
			Email:       req.CustomerEmail,
			PhoneNumber: req.CustomerPhone,
		}},
		Target:           goPayTarget{Type: "ACCOUNT", GoID: g.cfg.GoID},
		Amount:           amount,
		Currency:         req.Currency,
		OrderNumber:      req.OrderID,
		OrderDescription: req.Description,
		Items:            []goPayItem{{Name: req.Description, Amount: amount, Count: 1}},
		Callback: goPayCallbackURLs{
			ReturnURL:       ResultURL(g.cfg.ClientOrigin, req.OrderID, false),
			NotificationURL: g.cfg.NotificationURL,
		},
		Lang: g.cfg.Lang,
	}

	var payment goPayPayment
	if err := g.do(ctx, http.MethodPost, "/api/payments/payment", payload, &payment); err != nil {
		return nil, fmt.Errorf("gopay.CreateSession: %w", err)
	}

	now := time.Now()
	return &models.PaymentInfo{
		ID:          fmt.Sprintf("%d", payment.ID),
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      MapGatewayState(payment.State),
		RedirectURL: payment.GwURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (g *GoPayGateway) GetStatus(ctx context.Context, paymentID string) (models.PaymentStatus, error) {
	var payment goPayPayment
	if err := g.do(ctx, http.MethodGet, "/api/payments/payment/"+paymentID, nil, &payment); err != nil {
		return models.PaymentStatusUnknown, fmt.Errorf("gopay.GetStatus: %w", err)
	}
	return MapGatewayState(payment.State), nil
}

// VerifyCallback checks the hex HMAC-SHA256 of body keyed with the client secret.
func (g *GoPayGateway) VerifyCallback(body []byte, signature string) bool {
	return VerifySignature(body, signature, g.cfg.ClientSecret)
}

// VerifySignature compares signature with hex(HMAC-SHA256(body, secret)) in constant time.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

func (g *GoPayGateway) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.APIURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: gateway returned %d: %s", models.ErrPaymentUnavailable, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
