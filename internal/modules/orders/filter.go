package orders

import (
	"sort"
	"strings"

	"taxi-booking/internal/models"
)

// applyFilter returns the orders matching f, sorted as f asks. The input
// slice is not modified.
func applyFilter(all []*models.Order, f models.OrderFilter) []*models.Order {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]*models.Order, 0, len(all))
	for _, o := range all {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PickupDate != "" && o.PickupDate != f.PickupDate {
			continue
		}
		if q != "" && !matchesQuery(o, q) {
			continue
		}
		out = append(out, o)
	}

	less := lessFunc(f.Sort)
	desc := f.Dir != "asc"
	// Created-at defaults to newest first; explicit sorts default to descending too.
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func matchesQuery(o *models.Order, q string) bool {
	for _, field := range []string{o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.StartAddress, o.EndAddress} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func lessFunc(key string) func(a, b *models.Order) bool {
	switch key {
	case "price":
		return func(a, b *models.Order) bool { return a.Price < b.Price }
	case "distance":
		return func(a, b *models.Order) bool { return a.Distance < b.Distance }
	case "pickup_date":
		return func(a, b *models.Order) bool {
			if a.PickupDate != b.PickupDate {
				return a.PickupDate < b.PickupDate
			}
			return a.PickupTime < b.PickupTime
		}
	case "customer_name":
		return func(a, b *models.Order) bool {
			return strings.ToLower(a.CustomerName) < strings.ToLower(b.CustomerName)
		}
	}
	return func(a, b *models.Order) bool { return a.CreatedAt.Before(b.CreatedAt) }
}
