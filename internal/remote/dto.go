package remote

import (
	"math"
	"strings"
	"time"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
)

// OrderItemDTO is an order line as the order backend sends and accepts it.
type OrderItemDTO struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// OrderDTO is the order backend's order representation. Amounts travel as
// JSON numbers with an optional fraction; orderDate is epoch millis.
type OrderDTO struct {
	OrderID         string         `json:"orderId,omitempty"`
	UserEmail       string         `json:"userEmail"`
	OrderDate       int64          `json:"orderDate,omitempty"`
	Status          string         `json:"status,omitempty"`
	TotalAmount     float64        `json:"totalAmount"`
	ShippingAddress string         `json:"shippingAddress"`
	TrackingNumber  *string        `json:"trackingNumber,omitempty"`
	DeliveryDate    *int64         `json:"deliveryDate,omitempty"`
	Items           []OrderItemDTO `json:"items,omitempty"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// ProductDTO is the catalog backend's product representation.
type ProductDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       float64 `json:"stock"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
	Origin      *string `json:"origin"`
	IsOrganic   bool    `json:"isOrganic"`
}

// PaymentRequest is sent to payments/process. Card fields are never
// populated by the storefront.
type PaymentRequest struct {
	OrderID       string  `json:"orderId"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
}

// Payment outcomes reported by the backend.
const (
	PaymentSuccess = "success"
	PaymentPending = "pending"
	PaymentFailed  = "failed"
)

// PaymentResult is the backend's answer to a payment request.
type PaymentResult struct {
	PaymentID     string  `json:"paymentId"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transactionId,omitempty"`
	Message       string  `json:"message"`
}

// Succeeded reports whether the payment went through.
func (r *PaymentResult) Succeeded() bool {
	return strings.EqualFold(r.Status, PaymentSuccess)
}

// OrderToDTO converts a local order for the backend.
func OrderToDTO(o *domain.Order) OrderDTO {
	dto := OrderDTO{
		OrderID:         o.ID,
		UserEmail:       o.UserEmail,
		OrderDate:       o.CreatedAt.UnixMilli(),
		Status:          o.Status.String(),
		TotalAmount:     float64(o.TotalAmount),
		ShippingAddress: o.ShippingAddress,
		Items:           make([]OrderItemDTO, len(o.Items)),
	}
	if o.TrackingNumber != "" {
		tn := o.TrackingNumber
		dto.TrackingNumber = &tn
	}
	if o.DeliveryDate != nil {
		ms := o.DeliveryDate.UnixMilli()
		dto.DeliveryDate = &ms
	}
	for i, item := range o.Items {
		dto.Items[i] = OrderItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: float64(item.UnitPrice),
		}
	}
	return dto
}

// ToOrder converts a backend order into the local model. An unknown status
// is kept verbatim in upper case so the record is still shown.
func (d *OrderDTO) ToOrder() *domain.Order {
	status, err := domain.ParseStatus(d.Status)
	if err != nil {
		status = domain.OrderStatus(strings.ToUpper(d.Status))
	}

	created := time.UnixMilli(d.OrderDate).UTC()
	o := &domain.Order{
		ID:              d.OrderID,
		UserEmail:       d.UserEmail,
		Status:          status,
		TotalAmount:     toAmount(d.TotalAmount),
		ShippingAddress: d.ShippingAddress,
		CreatedAt:       created,
		UpdatedAt:       created,
		Items:           make([]domain.OrderItem, len(d.Items)),
	}
	if d.TrackingNumber != nil {
		o.TrackingNumber = *d.TrackingNumber
	}
	if d.DeliveryDate != nil {
		dd := time.UnixMilli(*d.DeliveryDate).UTC()
		o.DeliveryDate = &dd
	}
	for i, item := range d.Items {
		unit := toAmount(item.UnitPrice)
		o.Items[i] = domain.OrderItem{
			OrderID:    d.OrderID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  unit,
			TotalPrice: unit * int64(item.Quantity),
		}
	}
	return o
}

// ToProduct converts a backend product. Unknown categories map to fresh
// fruit and the unit defaults to kilograms.
func (d *ProductDTO) ToProduct() *domain.Product {
	category := d.Category
	if !domain.IsValidCategory(category) {
		category = domain.CategoryFreshFruit
	}
	p := &domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       toAmount(d.Price),
		Stock:       int(math.Floor(d.Stock)),
		Category:    category,
		ImageURL:    d.ImageURL,
		Unit:        "kg",
		IsOrganic:   d.IsOrganic,
		IsActive:    true,
	}
	if d.Origin != nil {
		p.Origin = *d.Origin
	}
	return p
}

func toAmount(v float64) int64 {
	return int64(math.Round(v))
}
