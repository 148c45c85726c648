package payments

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"taxi-booking/internal/models"

	"github.com/google/uuid"
)

// MockGateway simulates a payment gateway without any network call. It is a
// development and test double: GetStatus draws a random status weighted
// toward paid unless a fixed status is configured.
type MockGateway struct {
	clientOrigin string
	fixed        models.PaymentStatus

	mu  sync.Mutex
	rnd *rand.Rand
}

// mockStatusWeights is the draw table for GetStatus.
var mockStatusWeights = []struct {
	status models.PaymentStatus
	weight int
}{
	{models.PaymentStatusPaid, 70},
	{models.PaymentStatusPending, 15},
	{models.PaymentStatusCanceled, 10},
	{models.PaymentStatusFailed, 5},
}

// NewMockGateway creates a mock. A valid fixedStatus makes GetStatus
// deterministic.
func NewMockGateway(clientOrigin string, fixedStatus string, src rand.Source) *MockGateway {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	m := &MockGateway{clientOrigin: clientOrigin, rnd: rand.New(src)}
	if s := models.PaymentStatus(fixedStatus); s.Valid() {
		m.fixed = s
	}
	return m
}

func (m *MockGateway) Mock() bool { return true }

func (m *MockGateway) CreateSession(ctx context.Context, req models.PaymentRequest) (*models.PaymentInfo, error) {
	now := time.Now()
	return &models.PaymentInfo{
		ID:          uuid.New().String(),
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      models.PaymentStatusCreated,
		RedirectURL: ResultURL(m.clientOrigin, req.OrderID, true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (m *MockGateway) GetStatus(ctx context.Context, paymentID string) (models.PaymentStatus, error) {
	if m.fixed != "" {
		return m.fixed, nil
	}
	total := 0
	for _, w := range mockStatusWeights {
		total += w.weight
	}

	m.mu.Lock()
	n := m.rnd.Intn(total)
	m.mu.Unlock()

	for _, w := range mockStatusWeights {
		if n < w.weight {
			return w.status, nil
		}
		n -= w.weight
	}
	return models.PaymentStatusPaid, nil
}

// VerifyCallback accepts every callback.
func (m *MockGateway) VerifyCallback(body []byte, signature string) bool {
	return true
}
