package service

import (
	"context"
	"time"

	"github.com/canteen-pickup/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Stats summarises orders placed since a point in time.
type Stats struct {
	Since             time.Time
	ByStatus          map[string]int64
	Orders            int64
	Active            int64
	Revenue           decimal.Decimal
	AverageOrderValue decimal.Decimal
}

// Stats counts today's orders. Revenue and average value only include
// delivered orders.
func (s *OrderService) Stats(ctx context.Context) (*Stats, error) {
	since := s.today()

	ictx, cancel := s.io(ctx)
	rows, err := s.store.CountOrdersByStatus(ictx, since)
	cancel()
	if err != nil {
		return nil, storeErr("count orders", err)
	}

	st := &Stats{
		Since:             since,
		ByStatus:          map[string]int64{},
		Revenue:           decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	var delivered int64
	for _, r := range rows {
		st.ByStatus[r.Status] = r.Count
		st.Orders += r.Count
		switch r.Status {
		case enum.OrderStatusDelivered:
			delivered = r.Count
			st.Revenue = decimal.NewFromInt(r.Total)
		case enum.OrderStatusPlaced, enum.OrderStatusProcessing, enum.OrderStatusReady:
			st.Active += r.Count
		}
	}
	if delivered > 0 {
		st.AverageOrderValue = st.Revenue.Div(decimal.NewFromInt(delivered)).Round(2)
	}
	st.Revenue = st.Revenue.Round(2)
	return st, nil
}
