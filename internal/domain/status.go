package domain

import (
	"fmt"
	"strings"
)

// OrderStatus is a step in the order lifecycle. The wire form is the
// upper-case name.
type OrderStatus string

// Order status constants.
const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusInTransit OrderStatus = "IN_TRANSIT"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// ValidStatuses returns all order statuses in lifecycle order.
func ValidStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending,
		StatusConfirmed,
		StatusPreparing,
		StatusShipped,
		StatusInTransit,
		StatusDelivered,
		StatusCancelled,
	}
}

// IsValid checks if s is a known status.
func (s OrderStatus) IsValid() bool {
	for _, v := range ValidStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// AllowedTransitions is the strict lifecycle graph. CANCELLED is reachable
// from every non-terminal state.
func AllowedTransitions() map[OrderStatus][]OrderStatus {
	return map[OrderStatus][]OrderStatus{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusPreparing, StatusCancelled},
		StatusPreparing: {StatusShipped, StatusCancelled},
		StatusShipped:   {StatusInTransit, StatusCancelled},
		StatusInTransit: {StatusDelivered, StatusCancelled},
		StatusDelivered: {},
		StatusCancelled: {},
	}
}

// CanTransitionTo checks the strict graph for from → to.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range AllowedTransitions()[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionTo checks if the order can move to target under the strict graph.
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	return o.Status.CanTransitionTo(target)
}
