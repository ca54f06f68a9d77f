package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderSubmitted OrderStatus = "SUBMITTED"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRejected  OrderStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderRejected
}

type OrderType string

const (
	OrderMarket    OrderType = "MARKET"
	OrderLimit     OrderType = "LIMIT"
	OrderStop      OrderType = "STOP"
	OrderStopLimit OrderType = "STOP_LIMIT"
)

type Order struct {
	ID             string      `json:"order_id"`
	Symbol         string      `json:"symbol"`
	Action         Action      `json:"action"`
	Quantity       float64     `json:"quantity"`
	Type           OrderType   `json:"order_type"`
	Price          *float64    `json:"price,omitempty"`
	StopPrice      *float64    `json:"stop_price,omitempty"`
	Status         OrderStatus `json:"status"`
	FilledQuantity float64     `json:"filled_quantity"`
	FilledPrice    float64     `json:"filled_price"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	DryRun         bool        `json:"dry_run"`
	Note           string      `json:"note,omitempty"`
}

// OrderRequest is the input of OrderManager.CreateOrder.
type OrderRequest struct {
	Symbol    string
	Action    Action
	Quantity  float64
	Type      OrderType
	Price     *float64
	StopPrice *float64
	Note      string
}

// OrderResult carries either the created order or a rejection reason.
type OrderResult struct {
	Order    *Order `json:"order,omitempty"`
	Rejected bool   `json:"rejected"`
	Reason   string `json:"reason,omitempty"`
}

// OrderFilter narrows List results. Zero fields match everything.
type OrderFilter struct {
	Symbol string
	Status OrderStatus
	Limit  int
}
