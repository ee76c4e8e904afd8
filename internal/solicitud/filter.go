package solicitud

import (
	"sort"
	"strings"
)

// Answer states accepted by Filter.
const (
	StateAll      = "Todas"
	StatePending  = "Sin contestar"
	StateApproved = "Aprobadas"
	StateRejected = "Rechazadas"
)

const (
	OrderNewest = "Recientes"
	OrderOldest = "Antiguas"
)

// Query narrows and orders a summary list.
type Query struct {
	State  string `form:"estado"`
	Search string `form:"q"`
	Order  string `form:"orden"`
}

// Filter returns the summaries matching q, newest first unless q asks for
// the oldest first. The input is not modified.
func Filter(items []Summary, q Query) []Summary {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]Summary, 0, len(items))
	for _, s := range items {
		if q.State != "" && q.State != StateAll && s.State() != q.State {
			continue
		}
		if search != "" && !matches(s, search) {
			continue
		}
		out = append(out, s)
	}

	oldestFirst := q.Order == OrderOldest
	sort.SliceStable(out, func(i, j int) bool {
		if oldestFirst {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out
}

func matches(s Summary, search string) bool {
	fields := []string{
		s.ID,
		s.RequesterCI,
		s.RequesterName + " " + s.RequesterSurname,
		s.Community,
		s.Province,
		s.Address,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}
