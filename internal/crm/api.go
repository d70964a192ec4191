package crm

import (
	"context"
	"encoding/json"
	"net/http"
)

// Order status and ticket defaults the CRM expects on creation.
const (
	OrderTitle      = "Pedido #123"
	OrderStatusDone = "Realizada"
	TicketOpen      = "Aberto"
	TicketNormal    = "Normal"
)

// NewOrder is the payload of a sales order creation.
type NewOrder struct {
	Title      string  `json:"title"`
	TotalOrder float64 `json:"total_order"`
	Status     string  `json:"status"`
	CEP        string  `json:"cep"`
}

// NewTicket is the payload of a ticket creation.
type NewTicket struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// ListCatalog returns every food item available for sale.
func (c *Client) ListCatalog(ctx context.Context) ([]CatalogItem, error) {
	q, err := filterQuery(nil)
	if err != nil {
		return nil, err
	}
	res, err := do[Response[[]CatalogItem]](ctx, c, http.MethodGet, "/api/portifolio:list", q, nil)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// CreateSalesOrder creates a sales order header and returns it as stored.
func (c *Client) CreateSalesOrder(ctx context.Context, order NewOrder) (*SalesOrder, error) {
	res, err := do[Response[SalesOrder]](ctx, c, http.MethodPost, "/api/sales_order:create", nil, order)
	if err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// AddOrderItem attaches a catalog item to an existing sales order.
func (c *Client) AddOrderItem(ctx context.Context, item OrderItem) error {
	_, err := do[Response[json.RawMessage]](ctx, c, http.MethodPost, "/api/order_portifolio:create", nil, item)
	return err
}

// GetTicket looks a ticket up by its protocol number.
func (c *Client) GetTicket(ctx context.Context, protocol string) (*Ticket, error) {
	q, err := filterQuery(map[string]string{"protocol": protocol})
	if err != nil {
		return nil, err
	}
	res, err := do[Response[Ticket]](ctx, c, http.MethodGet, "/api/ticket:get", q, nil)
	if err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// CreateTicket opens a ticket and returns it with the protocol assigned by the CRM.
func (c *Client) CreateTicket(ctx context.Context, t NewTicket) (*Ticket, error) {
	res, err := do[Response[Ticket]](ctx, c, http.MethodPost, "/api/ticket:create", nil, t)
	if err != nil {
		return nil, err
	}
	return &res.Data, nil
}
