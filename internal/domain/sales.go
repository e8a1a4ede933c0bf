package domain

// SalesSnapshot holds the aggregates shown on the admin sales screen.
type SalesSnapshot struct {
	TotalSales        int64   `json:"total_sales"`
	TotalOrders       int     `json:"total_orders"`
	DeliveredOrders   int     `json:"delivered_orders"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// ComputeSalesSnapshot aggregates orders. Only delivered orders count as
// revenue, but the average divides by every order.
func ComputeSalesSnapshot(orders []Order) SalesSnapshot {
	var snap SalesSnapshot
	for i := range orders {
		snap.TotalOrders++
		if orders[i].Status == StatusDelivered {
			snap.DeliveredOrders++
			snap.TotalSales += orders[i].TotalAmount
		}
	}
	if snap.TotalOrders > 0 {
		snap.AverageOrderValue = float64(snap.TotalSales) / float64(snap.TotalOrders)
	}
	return snap
}

// StatusCounts returns how many orders sit in each status.
func StatusCounts(orders []Order) map[OrderStatus]int {
	counts := make(map[OrderStatus]int, len(ValidStatuses()))
	for i := range orders {
		counts[orders[i].Status]++
	}
	return counts
}
