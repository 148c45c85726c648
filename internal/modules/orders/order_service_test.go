package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"taxi-booking/internal/models"
	"taxi-booking/internal/modules/events"
	"taxi-booking/internal/modules/payments"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory RepositoryInterface.
type fakeRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.Order
	now       time.Time
	createErr error
	payErr    error
	listCalls int
	// afterRead runs once ListAll has read its rows, before it returns.
	afterRead func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]*models.Order{}, now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (r *fakeRepo) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	c := o.Clone()
	c.ID = uuid.New().String()
	r.now = r.now.Add(time.Minute)
	c.CreatedAt = r.now
	r.rows[c.ID] = c
	return c.Clone(), nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *fakeRepo) ListAll(ctx context.Context) ([]*models.Order, error) {
	r.mu.Lock()
	r.listCalls++
	out := make([]*models.Order, 0, len(r.rows))
	for _, o := range r.rows {
		out = append(out, o.Clone())
	}
	hook := r.afterRead
	r.afterRead = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) ListVisibleTo(ctx context.Context, userID string) ([]*models.Order, error) {
	all, _ := r.ListAll(ctx)
	out := all[:0]
	for _, o := range all {
		if o.UserID == nil || *o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeRepo) update(id string, fn func(o *models.Order)) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	fn(o)
	return o.Clone(), nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	return r.update(id, func(o *models.Order) { o.Status = status })
}

func (r *fakeRepo) UpdatePayment(ctx context.Context, id string, info *models.PaymentInfo) (*models.Order, error) {
	if r.payErr != nil {
		return nil, r.payErr
	}
	return r.update(id, func(o *models.Order) {
		pid, st, u := info.ID, string(info.Status), info.RedirectURL
		o.PaymentID, o.PaymentStatus, o.PaymentURL = &pid, &st, &u
	})
}

func (r *fakeRepo) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Order, error) {
	return r.update(id, func(o *models.Order) {
		st := string(status)
		o.PaymentStatus = &st
	})
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type failingGateway struct{ payments.Gateway }

func (failingGateway) Mock() bool { return false }
func (failingGateway) CreateSession(ctx context.Context, req models.PaymentRequest) (*models.PaymentInfo, error) {
	return nil, models.ErrPaymentUnavailable
}
func (failingGateway) GetStatus(ctx context.Context, id string) (models.PaymentStatus, error) {
	return "", models.ErrPaymentUnavailable
}

type chanNotifier struct{ got chan *models.Order }

func (n chanNotifier) NotifyNewOrder(ctx context.Context, o *models.Order) { n.got <- o }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(ev events.OrderEvent) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func validRequest(name string) models.CreateOrderRequest {
	return models.CreateOrderRequest{
		CustomerDetails: models.CustomerDetails{
			CustomerName:  name,
			CustomerEmail: "jan@example.com",
			CustomerPhone: "+420 777 123 456",
			PickupDate:    "2024-06-01",
			PickupTime:    "10:30",
		},
		StartAddress: "Václavské náměstí, Praha",
		EndAddress:   "Letiště Václava Havla, Praha",
		StartPoint:   models.NewPoint(50.0815, 14.4286),
		EndPoint:     models.NewPoint(50.1008, 14.2600),
		Distance:     17400,
	}
}

func newTestService(repo RepositoryInterface, gw payments.Gateway, n Notifier, pub events.Publisher) *Service {
	return NewService(repo, gw, n, pub, Options{
		RatePerKm:    20,
		Currency:     "CZK",
		ClientOrigin: "http://localhost:5173",
		Access:       AccessPolicy{AnonymousRead: true},
	})
}

func TestCreatePricesPersistsAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	notifier := chanNotifier{got: make(chan *models.Order, 1)}
	pub := &recordingPublisher{}
	svc := newTestService(repo, payments.NewMockGateway("http://localhost:5173", "paid", nil), notifier, pub)

	req := validRequest("Jan Novák")
	req.AdditionalNotes = "two suitcases"
	res, err := svc.Create(context.Background(), models.Requester{UserID: "user-1", Role: models.RoleUser}, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Order.Price != 348 {
		t.Errorf("price = %d, want 348", res.Order.Price)
	}
	if res.Order.Status != models.OrderStatusPending {
		t.Errorf("status = %q", res.Order.Status)
	}
	if res.Order.UserID == nil || *res.Order.UserID != "user-1" {
		t.Errorf("user id = %v", res.Order.UserID)
	}
	if !res.Order.HasPayment() {
		t.Error("expected payment fields on the order")
	}
	wantURL := "http://localhost:5173/payment-result?mockPayment=true&orderId=" + res.OrderID
	if res.PaymentURL != wantURL {
		t.Errorf("payment url = %q, want %q", res.PaymentURL, wantURL)
	}

	select {
	case o := <-notifier.got:
		if o.ID != res.OrderID {
			t.Errorf("notified %q, want %q", o.ID, res.OrderID)
		}
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
	if got := pub.types(); len(got) != 1 || got[0] != events.OrderCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCreateIgnoresClientPrice(t *testing.T) {
	svc := newTestService(newFakeRepo(), payments.NewMockGateway("", "", nil), nil, nil)
	req := validRequest("Jan")
	req.Distance = 200000
	res, err := svc.Create(context.Background(), models.Requester{}, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Order.Price != 4000 {
		t.Errorf("price = %d, want 4000", res.Order.Price)
	}
	if res.Order.UserID != nil {
		t.Error("anonymous order must not carry a user id")
	}
}

type fixedRouter struct {
	route *models.Route
	err   error
	calls int
}

func (r *fixedRouter) Route(ctx context.Context, from, to models.Point) (*models.Route, error) {
	r.calls++
	return r.route, r.err
}

func TestCreateDerivesDistanceFromRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("client distance replaced", func(t *testing.T) {
		router := &fixedRouter{route: &models.Route{DistanceMeters: 200000, DurationSeconds: 7200}}
		svc := NewService(newFakeRepo(), payments.NewMockGateway("", "", nil), nil, nil, Options{Router: router})
		req := validRequest("Jan")
		req.Distance = 0
		res, err := svc.Create(ctx, models.Requester{}, req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Order.Distance != 200000 || res.Order.Price != 4000 || router.calls != 1 {
			t.Errorf("distance = %v, price = %d, route calls = %d", res.Order.Distance, res.Order.Price, router.calls)
		}
	})

	t.Run("no route creates nothing", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, payments.NewMockGateway("", "", nil), nil, nil, Options{Router: &fixedRouter{err: models.ErrRouteNotFound}})
		if _, err := svc.Create(ctx, models.Requester{}, validRequest("Jan")); !errors.Is(err, models.ErrRouteNotFound) {
			t.Fatalf("err = %v, want ErrRouteNotFound", err)
		}
		if len(repo.rows) != 0 {
			t.Errorf("%d orders stored", len(repo.rows))
		}
	})

	t.Run("route too long to price", func(t *testing.T) {
		repo := newFakeRepo()
		router := &fixedRouter{route: &models.Route{DistanceMeters: 1e30}}
		svc := NewService(repo, payments.NewMockGateway("", "", nil), nil, nil, Options{Router: router})
		if _, err := svc.Create(ctx, models.Requester{}, validRequest("Jan")); !errors.Is(err, models.ErrDistanceOutOfRange) {
			t.Fatalf("err = %v, want ErrDistanceOutOfRange", err)
		}
		if len(repo.rows) != 0 {
			t.Errorf("%d orders stored", len(repo.rows))
		}
	})
}

func TestCreateRejectsUnboundedDistance(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, payments.NewMockGateway("", "", nil), nil, nil)
	req := validRequest("Jan")
	req.Distance = 1e30
	if _, err := svc.Create(context.Background(), models.Requester{}, req); err == nil {
		t.Fatal("expected validation error")
	}
	if len(repo.rows) != 0 {
		t.Errorf("%d orders stored", len(repo.rows))
	}
}

func TestCreateSurvivesPaymentFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, failingGateway{}, nil, nil)

	res, err := svc.Create(context.Background(), models.Requester{}, validRequest("Jan"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Order.HasPayment() {
		t.Error("no payment fields expected")
	}
	if want := "http://localhost:5173/payment-result?orderId=" + res.OrderID; res.PaymentURL != want {
		t.Errorf("payment url = %q, want %q", res.PaymentURL, want)
	}
	if _, err := repo.FindByID(context.Background(), res.OrderID); err != nil {
		t.Errorf("order not persisted: %v", err)
	}
}

func TestCreateKeepsSessionWhenPaymentWriteFails(t *testing.T) {
	repo := newFakeRepo()
	repo.payErr = errors.New("write failed")
	svc := newTestService(repo, payments.NewMockGateway("http://localhost:5173", "", nil), nil, nil)

	res, err := svc.Create(context.Background(), models.Requester{}, validRequest("Jan"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.PaymentURL == "" {
		t.Error("redirect url should still be returned")
	}
}

func TestCreateAbortsOnPersistenceFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("db down")
	notifier := chanNotifier{got: make(chan *models.Order, 1)}
	svc := newTestService(repo, payments.NewMockGateway("", "", nil), notifier, nil)

	if _, err := svc.Create(context.Background(), models.Requester{}, validRequest("Jan")); err == nil {
		t.Fatal("expected error")
	}
	select {
	case <-notifier.got:
		t.Error("no notification expected")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCreateRejectsInvalidRequest(t *testing.T) {
	svc := newTestService(newFakeRepo(), payments.NewMockGateway("", "", nil), nil, nil)
	req := validRequest("Jan")
	req.CustomerEmail = "not-an-email"
	if _, err := svc.Create(context.Background(), models.Requester{}, req); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCacheFollowsWrites(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo, payments.NewMockGateway("", "", nil), nil, nil)

	first, _ := svc.Create(ctx, models.Requester{}, validRequest("Alena"))
	if _, err := svc.List(ctx); err != nil {
		t.Fatal(err)
	}
	second, _ := svc.Create(ctx, models.Requester{}, validRequest("Bohdan"))

	list, err := svc.AdminList(ctx, models.OrderFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.OrderID {
		t.Fatalf("newest first expected, got %d orders", len(list))
	}
	if repo.listCalls != 1 {
		t.Errorf("list calls = %d, want 1", repo.listCalls)
	}

	if _, err := svc.UpdateStatus(ctx, first.OrderID, models.OrderStatusCompleted); err != nil {
		t.Fatal(err)
	}
	cached, _ := svc.GetByID(ctx, first.OrderID)
	if cached.Status != models.OrderStatusCompleted {
		t.Errorf("cached status = %q", cached.Status)
	}

	if err := svc.Delete(ctx, second.OrderID); err != nil {
		t.Fatal(err)
	}
	list, _ = svc.AdminList(ctx, models.OrderFilter{})
	if len(list) != 1 || list[0].ID != first.OrderID {
		t.Errorf("after delete got %d orders", len(list))
	}

	if _, err := svc.AdminList(ctx, models.OrderFilter{Refresh: true}); err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 2 {
		t.Errorf("refresh should reload, list calls = %d", repo.listCalls)
	}
}

func TestRefreshKeepsWritesMadeDuringRead(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo, payments.NewMockGateway("", "", nil), nil, nil)

	updated, _ := svc.Create(ctx, models.Requester{}, validRequest("Alena"))
	deleted, _ := svc.Create(ctx, models.Requester{}, validRequest("Bohdan"))

	var added *models.CreateOrderResult
	repo.afterRead = func() {
		if _, err := svc.UpdateStatus(ctx, updated.OrderID, models.OrderStatusCompleted); err != nil {
			t.Error(err)
		}
		if err := svc.Delete(ctx, deleted.OrderID); err != nil {
			t.Error(err)
		}
		var err error
		if added, err = svc.Create(ctx, models.Requester{}, validRequest("Cyril")); err != nil {
			t.Error(err)
		}
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != added.OrderID || list[1].ID != updated.OrderID {
		t.Fatalf("list = %v", orderIDs(list))
	}
	if list[1].Status != models.OrderStatusCompleted {
		t.Errorf("listed status = %q", list[1].Status)
	}

	cached, err := svc.AdminList(ctx, models.OrderFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 2 || cached[0].ID != added.OrderID || cached[1].Status != models.OrderStatusCompleted {
		t.Errorf("cache = %v", orderIDs(cached))
	}
	if repo.listCalls != 1 {
		t.Errorf("list calls = %d, want 1", repo.listCalls)
	}
}

func orderIDs(list []*models.Order) []string {
	ids := make([]string, len(list))
	for i, o := range list {
		ids[i] = o.ID
	}
	return ids
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo(), payments.NewMockGateway("", "", nil), nil, nil)

	if _, err := svc.GetByID(ctx, "not-a-uuid"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetByID err = %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, uuid.NewString(), models.OrderStatusConfirmed); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("UpdateStatus err = %v", err)
	}
	if err := svc.Delete(ctx, uuid.NewString()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Delete err = %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, uuid.NewString(), "lost"); !errors.Is(err, models.ErrInvalidStatus) {
		t.Errorf("invalid status err = %v", err)
	}
}

func TestPaidCascadesToConfirmed(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		current models.OrderStatus
		payment models.PaymentStatus
		want    models.OrderStatus
	}{
		{"paid pending", models.OrderStatusPending, models.PaymentStatusPaid, models.OrderStatusConfirmed},
		{"paid completed", models.OrderStatusCompleted, models.PaymentStatusPaid, models.OrderStatusCompleted},
		{"canceled payment", models.OrderStatusPending, models.PaymentStatusCanceled, models.OrderStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			pub := &recordingPublisher{}
			svc := newTestService(repo, payments.NewMockGateway("", "", nil), nil, pub)
			res, _ := svc.Create(ctx, models.Requester{}, validRequest("Jan"))
			repo.UpdateStatus(ctx, res.OrderID, tt.current)

			if err := svc.UpdatePaymentStatus(ctx, res.OrderID, *res.Order.PaymentID, tt.payment); err != nil {
				t.Fatal(err)
			}
			got, _ := repo.FindByID(ctx, res.OrderID)
			if got.Status != tt.want {
				t.Errorf("status = %q, want %q", got.Status, tt.want)
			}
			if *got.PaymentStatus != string(tt.payment) {
				t.Errorf("payment status = %q", *got.PaymentStatus)
			}
		})
	}
}

func TestPaymentStatusNeedsMatchingSession(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		repo := newFakeRepo()
		pub := &recordingPublisher{}
		svc := newTestService(repo, failingGateway{}, nil, pub)
		res, _ := svc.Create(ctx, models.Requester{}, validRequest("Jan"))

		err := svc.UpdatePaymentStatus(ctx, res.OrderID, "x", models.PaymentStatusPaid)
		if !errors.Is(err, models.ErrNoPaymentSession) {
			t.Fatalf("err = %v, want ErrNoPaymentSession", err)
		}
		got, _ := repo.FindByID(ctx, res.OrderID)
		if got.PaymentStatus != nil || got.PaymentID != nil || got.Status != models.OrderStatusPending {
			t.Errorf("order changed: payment_status=%v payment_id=%v status=%q", got.PaymentStatus, got.PaymentID, got.Status)
		}
		if types := pub.types(); len(types) != 1 {
			t.Errorf("events = %v", types)
		}
	})

	t.Run("foreign payment id", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, payments.NewMockGateway("", "", nil), nil, nil)
		res, _ := svc.Create(ctx, models.Requester{}, validRequest("Jan"))

		err := svc.UpdatePaymentStatus(ctx, res.OrderID, "someone-elses-payment", models.PaymentStatusPaid)
		if !errors.Is(err, models.ErrPaymentMismatch) {
			t.Fatalf("err = %v, want ErrPaymentMismatch", err)
		}
		got, _ := repo.FindByID(ctx, res.OrderID)
		if got.Status != models.OrderStatusPending || *got.PaymentStatus != string(models.PaymentStatusCreated) {
			t.Errorf("order changed: status=%q payment_status=%q", got.Status, *got.PaymentStatus)
		}
	})
}

func TestPollPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("mock paid confirms", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), payments.NewMockGateway("", "paid", nil), nil, nil)
		res, _ := svc.Create(ctx, models.Requester{}, validRequest("Jan"))
		got, err := svc.PollPayment(ctx, res.OrderID)
		if err != nil {
			t.Fatal(err)
		}
		if got.PaymentStatus != models.PaymentStatusPaid || got.OrderStatus != models.OrderStatusConfirmed || !got.Mock {
			t.Errorf("result = %+v", got)
		}
	})

	t.Run("no payment is unknown", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), failingGateway{}, nil, nil)
		res, _ := svc.Create(ctx, models.Requester{}, validRequest("Jan"))
		got, err := svc.PollPayment(ctx, res.OrderID)
		if err != nil {
			t.Fatal(err)
		}
		if got.PaymentStatus != models.PaymentStatusUnknown || got.OrderStatus != models.OrderStatusPending {
			t.Errorf("result = %+v", got)
		}
	})

	t.Run("missing order", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), payments.NewMockGateway("", "", nil), nil, nil)
		if _, err := svc.PollPayment(ctx, uuid.NewString()); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestListForAndAccess(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo, payments.NewMockGateway("", "", nil), nil, nil)

	mine, _ := svc.Create(ctx, models.Requester{UserID: "u1", Role: models.RoleUser}, validRequest("Mine"))
	theirs, _ := svc.Create(ctx, models.Requester{UserID: "u2", Role: models.RoleUser}, validRequest("Theirs"))
	anon, _ := svc.Create(ctx, models.Requester{}, validRequest("Anon"))

	u1 := models.Requester{UserID: "u1", Role: models.RoleUser}
	list, err := svc.ListFor(ctx, u1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("user sees %d orders, want 2", len(list))
	}

	admin := models.Requester{UserID: "a", Role: models.RoleAdmin}
	if list, _ := svc.ListFor(ctx, admin); len(list) != 3 {
		t.Errorf("admin sees %d orders, want 3", len(list))
	}
	if _, err := svc.ListFor(ctx, models.Requester{}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("anonymous list err = %v", err)
	}

	if _, err := svc.GetForRequester(ctx, u1, mine.OrderID); err != nil {
		t.Errorf("own order: %v", err)
	}
	if _, err := svc.GetForRequester(ctx, u1, anon.OrderID); err != nil {
		t.Errorf("anonymous order: %v", err)
	}
	if _, err := svc.GetForRequester(ctx, u1, theirs.OrderID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign order err = %v", err)
	}
	if _, err := svc.GetForRequester(ctx, models.Requester{}, theirs.OrderID); err != nil {
		t.Errorf("anonymous read allowed: %v", err)
	}
}
