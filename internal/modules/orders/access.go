package orders

import "taxi-booking/internal/models"

// AccessPolicy mirrors the read rules of the orders table: admins see
// everything, users see their own orders and anonymous ones, anonymous
// callers may read only when AnonymousRead is on. Writes after creation
// are admin-only and gated by the router.
type AccessPolicy struct {
	AnonymousRead bool
}

// CanRead reports whether r may see order.
func (p AccessPolicy) CanRead(r models.Requester, order *models.Order) bool {
	switch {
	case r.IsAdmin():
		return true
	case r.Anonymous():
		return p.AnonymousRead
	}
	return order.UserID == nil || *order.UserID == r.UserID
}
