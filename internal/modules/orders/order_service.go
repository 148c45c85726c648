package orders

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"taxi-booking/internal/models"
	"taxi-booking/internal/modules/events"
	"taxi-booking/internal/modules/payments"
	"taxi-booking/internal/modules/routing"
	"taxi-booking/pkg/utils"

	"github.com/google/uuid"
)

// Notifier announces new orders to the admin and the customer.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, order *models.Order)
}

// ServiceInterface defines the contract for the order store.
type ServiceInterface interface {
	Create(ctx context.Context, requester models.Requester, req models.CreateOrderRequest) (*models.CreateOrderResult, error)
	List(ctx context.Context) ([]*models.Order, error)
	ListFor(ctx context.Context, requester models.Requester) ([]*models.Order, error)
	AdminList(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	GetByID(ctx context.Context, orderID string) (*models.Order, error)
	FetchByID(ctx context.Context, orderID string) (*models.Order, error)
	GetForRequester(ctx context.Context, requester models.Requester, orderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID, paymentID string, status models.PaymentStatus) error
	Delete(ctx context.Context, orderID string) error
	PollPayment(ctx context.Context, orderID string) (*models.PaymentResult, error)
}

// Options carries the order store settings. When Router is set, the trip
// distance is taken from the route between the order's points instead of
// the client.
type Options struct {
	Router         routing.RouteServiceInterface
	RatePerKm      float64
	Currency       string
	ClientOrigin   string
	Access         AccessPolicy
	NotifyTimeout  time.Duration
	PaymentTimeout time.Duration
}

// Service implements the order store: persistence through the repository,
// payment sessions through the gateway and an in-memory copy of the last
// fetched order list.
type Service struct {
	repo     RepositoryInterface
	gateway  payments.Gateway
	notifier Notifier
	events   events.Publisher
	opts     Options

	cacheLock   sync.RWMutex
	cache       map[string]*models.Order
	cacheOrder  []string // ids, newest first
	cacheLoaded bool

	// Writes made while a List is reading the database, replayed over
	// the fresh rows before they replace the cache.
	refreshing int
	pending    map[string]pendingWrite
}

// pendingWrite is a cache write recorded during a refresh. A nil order
// marks a deletion.
type pendingWrite struct {
	order   *models.Order
	created bool
}

// NewService creates a new order service.
func NewService(repo RepositoryInterface, gateway payments.Gateway, notifier Notifier, publisher events.Publisher, opts Options) *Service {
	if opts.RatePerKm <= 0 {
		opts.RatePerKm = routing.DefaultRatePerKm
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 30 * time.Second
	}
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 20 * time.Second
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		events:   publisher,
		opts:     opts,
		cache:    make(map[string]*models.Order),
	}
}

// Create persists an order, opens a payment session for it and fires the
// notifications. Only a persistence failure aborts; a payment failure
// leaves the order without payment fields.
func (s *Service) Create(ctx context.Context, requester models.Requester, req models.CreateOrderRequest) (*models.CreateOrderResult, error) {
	if err := utils.GetValidator().Validate(req); err != nil {
		return nil, err
	}

	distance := req.Distance
	if s.opts.Router != nil {
		route, err := s.opts.Router.Route(ctx, *req.StartPoint, *req.EndPoint)
		if err != nil {
			return nil, fmt.Errorf("service.Create.Route: %w", err)
		}
		distance = route.DistanceMeters
	}
	price, err := routing.Price(distance, s.opts.RatePerKm)
	if err != nil {
		return nil, fmt.Errorf("service.Create: %w", err)
	}

	order := &models.Order{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		PickupDate:    req.PickupDate,
		PickupTime:    req.PickupTime,
		StartAddress:  req.StartAddress,
		EndAddress:    req.EndAddress,
		StartPoint:    req.StartPoint,
		EndPoint:      req.EndPoint,
		Distance:      distance,
		Price:         price,
		Status:        models.OrderStatusPending,
	}
	if req.AdditionalNotes != "" {
		notes := req.AdditionalNotes
		order.AdditionalNotes = &notes
	}
	if !requester.Anonymous() {
		userID := requester.UserID
		order.UserID = &userID
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("service.Create: %w", err)
	}

	paymentURL := payments.ResultURL(s.opts.ClientOrigin, created.ID, s.gateway.Mock())
	if withPayment, url, ok := s.openPayment(ctx, created); ok {
		created = withPayment
		paymentURL = url
	}

	s.cacheInsert(created)
	s.events.Publish(events.OrderEvent{Type: events.OrderCreated, OrderID: created.ID, Status: string(created.Status)})

	if s.notifier != nil {
		snapshot := created.Clone()
		go func() {
			// Detached from the request: the customer does not wait for email delivery.
			nctx, cancel := context.WithTimeout(context.Background(), s.opts.NotifyTimeout)
			defer cancel()
			s.notifier.NotifyNewOrder(nctx, snapshot)
		}()
	}

	return &models.CreateOrderResult{OrderID: created.ID, PaymentURL: paymentURL, Order: created}, nil
}

// openPayment requests a payment session and stores it on the order. It
// reports false when no session could be created.
func (s *Service) openPayment(ctx context.Context, order *models.Order) (*models.Order, string, bool) {
	pctx, cancel := context.WithTimeout(ctx, s.opts.PaymentTimeout)
	defer cancel()

	info, err := s.gateway.CreateSession(pctx, models.PaymentRequest{
		OrderID:       order.ID,
		Amount:        order.Price,
		Currency:      s.opts.Currency,
		Description:   fmt.Sprintf("Taxi %s - %s", order.StartAddress, order.EndAddress),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
	})
	if err != nil {
		log.Printf("Payment session for order %s failed: %v", order.ID, err)
		return nil, "", false
	}

	updated, err := s.repo.UpdatePayment(ctx, order.ID, info)
	if err != nil {
		// The session exists at the gateway; the payer can still complete it.
		log.Printf("Failed to store payment %s on order %s: %v", info.ID, order.ID, err)
		return order, info.RedirectURL, true
	}
	return updated, info.RedirectURL, true
}

// List fetches every order, newest first, and replaces the cache with it.
// Cache writes that land while the database is being read win over the
// rows that were read.
func (s *Service) List(ctx context.Context) ([]*models.Order, error) {
	s.cacheLock.Lock()
	if s.refreshing == 0 {
		s.pending = make(map[string]pendingWrite)
	}
	s.refreshing++
	s.cacheLock.Unlock()

	all, err := s.repo.ListAll(ctx)

	s.cacheLock.Lock()
	defer s.cacheLock.Unlock()
	s.refreshing--
	pending := s.pending
	if s.refreshing == 0 {
		s.pending = nil
	}
	if err != nil {
		return nil, fmt.Errorf("service.List: %w", err)
	}

	cache := make(map[string]*models.Order, len(all))
	for _, o := range all {
		cache[o.ID] = o.Clone()
	}
	var created []*models.Order
	for id, w := range pending {
		_, fetched := cache[id]
		switch {
		case w.order == nil:
			delete(cache, id)
		case w.created:
			cache[id] = w.order.Clone()
			created = append(created, w.order)
		case fetched:
			cache[id] = w.order.Clone()
		}
	}
	sort.Slice(created, func(i, j int) bool { return created[i].CreatedAt.After(created[j].CreatedAt) })

	order := make([]string, 0, len(cache))
	for _, o := range created {
		order = append(order, o.ID)
	}
	for _, o := range all {
		if _, ok := cache[o.ID]; ok && !pending[o.ID].created {
			order = append(order, o.ID)
		}
	}

	s.cache = cache
	s.cacheOrder = order
	s.cacheLoaded = true

	out := make([]*models.Order, 0, len(order))
	for _, id := range order {
		out = append(out, cache[id].Clone())
	}
	return out, nil
}

// ListFor returns the orders requester may see.
func (s *Service) ListFor(ctx context.Context, requester models.Requester) ([]*models.Order, error) {
	switch {
	case requester.IsAdmin():
		return s.List(ctx)
	case requester.Anonymous():
		return nil, models.ErrForbidden
	}
	list, err := s.repo.ListVisibleTo(ctx, requester.UserID)
	if err != nil {
		return nil, fmt.Errorf("service.ListFor: %w", err)
	}
	return list, nil
}

// AdminList filters and sorts the cached list, loading it first when it is
// empty or a refresh is requested.
func (s *Service) AdminList(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.ErrInvalidStatus
	}

	s.cacheLock.RLock()
	loaded := s.cacheLoaded
	s.cacheLock.RUnlock()

	if filter.Refresh || !loaded {
		if _, err := s.List(ctx); err != nil {
			return nil, err
		}
	}
	return applyFilter(s.snapshot(), filter), nil
}

// GetByID returns the cached copy when present and falls back to the database.
func (s *Service) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	s.cacheLock.RLock()
	cached, ok := s.cache[orderID]
	s.cacheLock.RUnlock()
	if ok {
		return cached.Clone(), nil
	}
	return s.FetchByID(ctx, orderID)
}

// FetchByID always reads the database; used where the list may never have
// been loaded.
func (s *Service) FetchByID(ctx context.Context, orderID string) (*models.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, models.ErrNotFound
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service.FetchByID: %w", err)
	}
	s.cacheReplace(order)
	return order, nil
}

// GetForRequester applies the access policy on top of GetByID. Orders the
// requester may not read are reported as not found.
func (s *Service) GetForRequester(ctx context.Context, requester models.Requester, orderID string) (*models.Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.opts.Access.CanRead(requester, order) {
		return nil, models.ErrNotFound
	}
	return order, nil
}

// UpdateStatus persists a new status and refreshes the cached copy.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, models.ErrInvalidStatus
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, models.ErrNotFound
	}

	order, err := s.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateStatus: %w", err)
	}
	s.cacheReplace(order)
	s.events.Publish(events.OrderEvent{Type: events.OrderStatusChanged, OrderID: orderID, Status: string(status)})
	return order, nil
}

// UpdatePaymentStatus persists the payment status reported for paymentID.
// The order must already carry that payment session. A paid order that is
// not yet confirmed or completed moves to confirmed.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID, paymentID string, status models.PaymentStatus) error {
	if _, err := uuid.Parse(orderID); err != nil {
		return models.ErrNotFound
	}

	current, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("service.UpdatePaymentStatus: %w", err)
	}
	if !current.HasPayment() {
		return fmt.Errorf("service.UpdatePaymentStatus: order %s: %w", orderID, models.ErrNoPaymentSession)
	}
	if paymentID != *current.PaymentID {
		return fmt.Errorf("service.UpdatePaymentStatus: order %s, payment %s: %w", orderID, paymentID, models.ErrPaymentMismatch)
	}

	order, err := s.repo.UpdatePaymentStatus(ctx, orderID, status)
	if err != nil {
		return fmt.Errorf("service.UpdatePaymentStatus: %w", err)
	}
	s.cacheReplace(order)
	s.events.Publish(events.OrderEvent{Type: events.OrderPaymentUpdate, OrderID: orderID, Status: string(order.Status), PaymentStatus: string(status)})

	if confirmsOrder(status, order.Status) {
		if _, err := s.UpdateStatus(ctx, orderID, models.OrderStatusConfirmed); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the order from the database and the cache.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	if _, err := uuid.Parse(orderID); err != nil {
		return models.ErrNotFound
	}
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return fmt.Errorf("service.Delete: %w", err)
	}
	s.cacheRemove(orderID)
	s.events.Publish(events.OrderEvent{Type: events.OrderDeleted, OrderID: orderID})
	return nil
}

// PollPayment reads the order directly, asks the gateway for the current
// payment status once and writes it back. Gateway or write failures
// degrade to unknown.
func (s *Service) PollPayment(ctx context.Context, orderID string) (*models.PaymentResult, error) {
	order, err := s.FetchByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result := &models.PaymentResult{
		OrderID:       order.ID,
		PaymentStatus: models.PaymentStatusUnknown,
		OrderStatus:   order.Status,
		Mock:          s.gateway.Mock(),
	}
	if !order.HasPayment() {
		return result, nil
	}

	status, err := s.gateway.GetStatus(ctx, *order.PaymentID)
	if err != nil {
		log.Printf("Payment status poll for order %s failed: %v", order.ID, err)
		return result, nil
	}
	result.PaymentStatus = status

	if err := s.UpdatePaymentStatus(ctx, order.ID, *order.PaymentID, status); err != nil {
		log.Printf("Failed to store payment status %s for order %s: %v", status, order.ID, err)
		return result, nil
	}
	if confirmsOrder(status, order.Status) {
		result.OrderStatus = models.OrderStatusConfirmed
	}
	return result, nil
}

// confirmsOrder reports whether a payment status moves the order to confirmed.
func confirmsOrder(payment models.PaymentStatus, current models.OrderStatus) bool {
	return payment == models.PaymentStatusPaid &&
		current != models.OrderStatusConfirmed && current != models.OrderStatusCompleted
}

// --- cache helpers ---

func (s *Service) snapshot() []*models.Order {
	s.cacheLock.RLock()
	defer s.cacheLock.RUnlock()
	out := make([]*models.Order, 0, len(s.cacheOrder))
	for _, id := range s.cacheOrder {
		if o, ok := s.cache[id]; ok {
			out = append(out, o.Clone())
		}
	}
	return out
}

// cacheInsert adds a new order to a loaded cache.
func (s *Service) cacheInsert(o *models.Order) {
	s.cacheLock.Lock()
	defer s.cacheLock.Unlock()
	s.notePending(o.ID, pendingWrite{order: o.Clone(), created: true})
	if !s.cacheLoaded {
		return
	}
	if _, exists := s.cache[o.ID]; !exists {
		s.cacheOrder = append([]string{o.ID}, s.cacheOrder...)
	}
	s.cache[o.ID] = o.Clone()
}

// cacheReplace updates the cached copy if the order is cached.
func (s *Service) cacheReplace(o *models.Order) {
	s.cacheLock.Lock()
	defer s.cacheLock.Unlock()
	s.notePending(o.ID, pendingWrite{order: o.Clone()})
	if _, ok := s.cache[o.ID]; ok {
		s.cache[o.ID] = o.Clone()
	}
}

func (s *Service) cacheRemove(orderID string) {
	s.cacheLock.Lock()
	defer s.cacheLock.Unlock()
	s.notePending(orderID, pendingWrite{})
	if _, ok := s.cache[orderID]; !ok {
		return
	}
	delete(s.cache, orderID)
	for i, id := range s.cacheOrder {
		if id == orderID {
			s.cacheOrder = append(s.cacheOrder[:i], s.cacheOrder[i+1:]...)
			break
		}
	}
}

// notePending records a write for the refreshes in flight. The caller
// holds cacheLock.
func (s *Service) notePending(orderID string, w pendingWrite) {
	if s.refreshing == 0 {
		return
	}
	if prev, ok := s.pending[orderID]; ok && prev.created && w.order != nil {
		w.created = true
	}
	s.pending[orderID] = w
}
