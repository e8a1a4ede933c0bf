package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
)

// DefaultReportLimit is how many recent orders the sales report lists.
const DefaultReportLimit = 50

// SalesReport is the admin sales screen: aggregates over every order plus
// the most recent ones.
type SalesReport struct {
	Snapshot     domain.SalesSnapshot       `json:"snapshot"`
	StatusCounts map[domain.OrderStatus]int `json:"status_counts"`
	RecentOrders []domain.Order             `json:"recent_orders"`
}

// SalesService computes sales aggregates from the local order store.
type SalesService struct {
	orders repository.OrderRepository
	logger *slog.Logger
}

// NewSalesService creates a new sales service.
func NewSalesService(orders repository.OrderRepository, logger *slog.Logger) *SalesService {
	return &SalesService{orders: orders, logger: logger}
}

// Snapshot aggregates every stored order.
func (s *SalesService) Snapshot(ctx context.Context) (domain.SalesSnapshot, error) {
	orders, err := s.orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return domain.SalesSnapshot{}, fmt.Errorf("load orders for sales: %w", storageError(err))
	}
	return domain.ComputeSalesSnapshot(orders), nil
}

// Report returns the snapshot with per-status counts and the latest limit
// orders. A limit of zero or less uses DefaultReportLimit.
func (s *SalesService) Report(ctx context.Context, limit int) (*SalesReport, error) {
	if limit <= 0 {
		limit = DefaultReportLimit
	}

	orders, err := s.orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("load orders for sales report: %w", storageError(err))
	}

	recent := orders
	if len(recent) > limit {
		recent = recent[:limit]
	}

	report := &SalesReport{
		Snapshot:     domain.ComputeSalesSnapshot(orders),
		StatusCounts: domain.StatusCounts(orders),
		RecentOrders: recent,
	}

	s.logger.DebugContext(ctx, "sales report computed",
		slog.Int("total_orders", report.Snapshot.TotalOrders),
		slog.Int64("total_sales", report.Snapshot.TotalSales),
	)
	return report, nil
}
