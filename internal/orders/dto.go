package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// LineInput is one requested product. A zero UnitPrice snapshots the live product price.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateInput carries a client's new order.
type CreateInput struct {
	ClientID uuid.UUID
	Lines    []LineInput
}

// ListParams configures order list pagination and filtering.
type ListParams struct {
	Limit  int
	Cursor string
	Status *enums.OrderStatus
}

// OrderSummary is the list projection of an order.
type OrderSummary struct {
	ID           uuid.UUID         `json:"id"`
	ClientID     uuid.UUID         `json:"clientId"`
	VendorID     *uuid.UUID        `json:"vendorId,omitempty"`
	Status       enums.OrderStatus `json:"status"`
	ArticleCount int               `json:"articleCount"`
	Total        decimal.Decimal   `json:"total"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// OrderLineView is the detail projection of an order line.
type OrderLineView struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderDetail is a single order with its lines and lifecycle timestamps.
type OrderDetail struct {
	OrderSummary
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
	ValidatedAt *time.Time      `json:"validatedAt,omitempty"`
	DeliveredAt *time.Time      `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time      `json:"cancelledAt,omitempty"`
	Lines       []OrderLineView `json:"lines"`
}

func summarize(order models.Order) OrderSummary {
	total := decimal.Zero
	for _, line := range order.Lines {
		total = total.Add(line.Subtotal())
	}
	return OrderSummary{
		ID:           order.ID,
		ClientID:     order.ClientID,
		VendorID:     order.VendorID,
		Status:       order.Status,
		ArticleCount: order.ArticleCount,
		Total:        total,
		CreatedAt:    order.CreatedAt,
	}
}

func detail(order models.Order) *OrderDetail {
	lines := make([]OrderLineView, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLineView{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal(),
		})
	}
	return &OrderDetail{
		OrderSummary: summarize(order),
		PaidAt:       order.PaidAt,
		ValidatedAt:  order.ValidatedAt,
		DeliveredAt:  order.DeliveredAt,
		CancelledAt:  order.CancelledAt,
		Lines:        lines,
	}
}
