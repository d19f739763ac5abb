package payments

import "context"

// OrderItem is one purchase line sent to the payment provider, priced in the
// provider's settlement currency.
type OrderItem struct {
	Name       string
	UnitAmount float64
	Quantity   int
}

type CreateOrderParams struct {
	Total     float64
	Currency  string
	Items     []OrderItem
	ReturnURL string
	CancelURL string
}

type Order struct {
	ID         string
	Status     string
	ApproveURL string
}

// Gateway is the outbound contract of the payment provider: create an order the
// buyer approves, then capture it. Payment methods that settle outside any
// provider (cash on delivery) simply have no Gateway involved.
type Gateway interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Order, error)
}
