package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

func TestSalesSnapshot_OnlyDeliveredCountsAsRevenue(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := NewSalesService(repo, newTestLogger())
	ctx := context.Background()

	orders := []domain.Order{
		{ID: "1", Status: domain.StatusDelivered, TotalAmount: 1000},
		{ID: "2", Status: domain.StatusDelivered, TotalAmount: 2000},
		{ID: "3", Status: domain.StatusPending, TotalAmount: 5000},
		{ID: "4", Status: domain.StatusCancelled, TotalAmount: 700},
	}
	repo.On("List", ctx, repository.OrderFilter{}).Return(orders, nil)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), snap.TotalSales)
	assert.Equal(t, 4, snap.TotalOrders)
	assert.Equal(t, 2, snap.DeliveredOrders)
	assert.Equal(t, 750.0, snap.AverageOrderValue)
}

func TestSalesSnapshot_NoOrders(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := NewSalesService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("List", ctx, repository.OrderFilter{}).Return([]domain.Order{}, nil)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SalesSnapshot{}, snap)
}

func TestSalesSnapshot_StoreFailure(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := NewSalesService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("List", ctx, repository.OrderFilter{}).Return(nil, errors.New("locked"))

	_, err := svc.Snapshot(ctx)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}

func TestSalesReport_LimitsRecentOrders(t *testing.T) {
	repo := new(mockOrderRepository)
	svc := NewSalesService(repo, newTestLogger())
	ctx := context.Background()

	orders := make([]domain.Order, 60)
	for i := range orders {
		orders[i] = domain.Order{ID: fmt.Sprintf("o-%02d", i), Status: domain.StatusDelivered, TotalAmount: 100}
	}
	orders[59].Status = domain.StatusCancelled
	repo.On("List", ctx, repository.OrderFilter{}).Return(orders, nil)

	report, err := svc.Report(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, report.RecentOrders, DefaultReportLimit)
	assert.Equal(t, "o-00", report.RecentOrders[0].ID)
	assert.Equal(t, 60, report.Snapshot.TotalOrders)
	assert.Equal(t, int64(5900), report.Snapshot.TotalSales)
	assert.Equal(t, 59, report.StatusCounts[domain.StatusDelivered])
	assert.Equal(t, 1, report.StatusCounts[domain.StatusCancelled])

	small, err := svc.Report(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, small.RecentOrders, 5)
}
