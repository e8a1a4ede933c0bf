package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSalesSnapshot_OnlyDeliveredCountsAsRevenue(t *testing.T) {
	orders := []Order{
		{Status: StatusDelivered, TotalAmount: 1000},
		{Status: StatusDelivered, TotalAmount: 2000},
		{Status: StatusCancelled, TotalAmount: 500},
		{Status: StatusPending, TotalAmount: 300},
	}

	snap := ComputeSalesSnapshot(orders)

	assert.Equal(t, int64(3000), snap.TotalSales)
	assert.Equal(t, 4, snap.TotalOrders)
	assert.Equal(t, 2, snap.DeliveredOrders)
	assert.InDelta(t, 750.0, snap.AverageOrderValue, 1e-9)
}

func TestComputeSalesSnapshot_Empty(t *testing.T) {
	snap := ComputeSalesSnapshot(nil)
	assert.Equal(t, SalesSnapshot{}, snap)
	assert.Zero(t, snap.AverageOrderValue)
}

func TestStatusCounts(t *testing.T) {
	counts := StatusCounts([]Order{
		{Status: StatusConfirmed}, {Status: StatusConfirmed}, {Status: StatusShipped},
	})
	assert.Equal(t, 2, counts[StatusConfirmed])
	assert.Equal(t, 1, counts[StatusShipped])
	assert.Zero(t, counts[StatusDelivered])
}
