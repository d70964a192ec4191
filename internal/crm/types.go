package crm

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Response is the envelope every CRM endpoint wraps its payload in.
type Response[T any] struct {
	Data T `json:"data"`
}

// CatalogItem is a food item registered in the CRM portfolio.
type CatalogItem struct {
	ID          ID     `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Price       Text   `json:"price,omitempty"`
	CEP         string `json:"cep,omitempty"`
}

// SalesOrder is a sales order header.
type SalesOrder struct {
	ID         ID     `json:"id,omitempty"`
	Title      string `json:"title,omitempty"`
	TotalOrder Text   `json:"total_order,omitempty"`
	Status     string `json:"status,omitempty"`
	CEP        string `json:"cep,omitempty"`
}

// OrderItem associates a catalog item with a sales order.
type OrderItem struct {
	SalesOrderID ID      `json:"sales_order_id"`
	PortfolioID  string  `json:"portifolio_id"`
	Quantity     float64 `json:"quantity"`
}

// Ticket is a support ticket.
type Ticket struct {
	Protocol    Text   `json:"protocol,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// Text holds a scalar the CRM may send either as a JSON string or a number,
// such as decimal prices.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

// ID is a record identifier. The CRM may send it as a number or a string;
// it is sent back as a number whenever it reads as one.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*id = ID(t)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(id), 64); err == nil && json.Valid([]byte(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}
