package orders

import (
	"context"
	"errors"
	"os"
	"testing"

	"taxi-booking/internal/models"
	"taxi-booking/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestPool connects to TEST_DATABASE_URL and applies the schema.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func newTestRepository(t *testing.T) RepositoryInterface {
	return NewRepository(newTestPool(t))
}

func TestRepositoryLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	notes := "two suitcases"
	created, err := repo.Create(ctx, &models.Order{
		CustomerName:    "Jan Novak",
		CustomerEmail:   "jan@example.com",
		CustomerPhone:   "+420 123 456 789",
		PickupDate:      "2026-05-01",
		PickupTime:      "08:30",
		StartAddress:    "Prague",
		EndAddress:      "Brno",
		StartPoint:      models.NewPoint(50.08, 14.43),
		EndPoint:        models.NewPoint(49.19, 16.61),
		Distance:        205000,
		Price:           4100,
		AdditionalNotes: &notes,
		Status:          models.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(context.Background(), created.ID) })

	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("database defaults not returned: %+v", created)
	}
	if created.StartPoint == nil || created.StartPoint.Lat() != 50.08 || created.UserID != nil {
		t.Errorf("round trip = %+v", created)
	}

	got, err := repo.FindByID(ctx, created.ID)
	if err != nil || got.CustomerName != "Jan Novak" {
		t.Fatalf("FindByID = %+v, %v", got, err)
	}

	updated, err := repo.UpdatePayment(ctx, created.ID, &models.PaymentInfo{
		ID: "pay-1", Status: models.PaymentStatusCreated, RedirectURL: "https://gw.example/pay-1",
	})
	if err != nil || !updated.HasPayment() {
		t.Fatalf("UpdatePayment = %+v, %v", updated, err)
	}

	updated, err = repo.UpdateStatus(ctx, created.ID, models.OrderStatusConfirmed)
	if err != nil || updated.Status != models.OrderStatusConfirmed {
		t.Fatalf("UpdateStatus = %+v, %v", updated, err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, created.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("after delete err = %v", err)
	}
}

// The SQL row policies must agree with AccessPolicy under its default
// settings for non-admin callers.
func TestRowPoliciesMatchAccessPolicy(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	var ownerID string
	email := uuid.NewString() + "@example.com"
	if err := pool.QueryRow(ctx, `INSERT INTO profiles (email) VALUES ($1) RETURNING id::text`, email).Scan(&ownerID); err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	t.Cleanup(func() { pool.Exec(context.Background(), `DELETE FROM profiles WHERE id = $1`, ownerID) })

	repo := NewRepository(pool)
	order, err := repo.Create(ctx, &models.Order{
		CustomerName: "Jan", CustomerEmail: "jan@example.com", CustomerPhone: "+420 123 456 789",
		PickupDate: "2026-05-01", PickupTime: "08:30", StartAddress: "A", EndAddress: "B",
		Status: models.OrderStatusPending, UserID: &ownerID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(context.Background(), order.ID) })

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `CREATE ROLE taxi_rls_reader NOLOGIN`); err != nil {
		t.Skipf("cannot create a test role: %v", err)
	}
	for _, stmt := range []string{
		`GRANT SELECT ON orders, profiles TO taxi_rls_reader`,
		`SET LOCAL ROLE taxi_rls_reader`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}

	policy := AccessPolicy{AnonymousRead: true}
	tests := []struct {
		name      string
		requester models.Requester
	}{
		{"anonymous", models.Requester{}},
		{"owner", models.Requester{UserID: ownerID, Role: models.RoleUser}},
		{"other user", models.Requester{UserID: uuid.NewString(), Role: models.RoleUser}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tx.Exec(ctx, `SELECT set_config('app.user_id', $1, true)`, tt.requester.UserID); err != nil {
				t.Fatal(err)
			}
			var visible int
			if err := tx.QueryRow(ctx, `SELECT count(*) FROM orders WHERE id = $1`, order.ID).Scan(&visible); err != nil {
				t.Fatal(err)
			}
			if want := policy.CanRead(tt.requester, order); (visible == 1) != want {
				t.Errorf("sql visible = %d, policy allows = %v", visible, want)
			}
		})
	}
}
