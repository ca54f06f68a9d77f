package models

// Requests for the trading HTTP API.

type CreateOrderRequest struct {
	Symbol    string   `json:"symbol" validate:"required"`
	Action    string   `json:"action" validate:"required,oneof=BUY SELL"`
	Quantity  float64  `json:"quantity" validate:"gt=0"`
	Type      string   `json:"order_type" default:"MARKET" validate:"oneof=MARKET LIMIT STOP STOP_LIMIT"`
	Price     *float64 `json:"price" validate:"omitempty,gt=0"`
	StopPrice *float64 `json:"stop_price" validate:"omitempty,gt=0"`
	Note      string   `json:"note" validate:"max=200"`
}

type SignalsQuery struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type OrdersQuery struct {
	Symbol string `query:"symbol" json:"symbol"`
	Status string `query:"status" json:"status" validate:"omitempty,oneof=PENDING SUBMITTED FILLED CANCELLED REJECTED"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type TradesQuery struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
