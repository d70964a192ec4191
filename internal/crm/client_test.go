package crm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "secret", "", srv.Client())
}

func TestNewDefaults(t *testing.T) {
	c := New("http://crm.local///", "tok", "", nil)
	assert.Equal(t, "http://crm.local", c.BaseURL)
	assert.Equal(t, DefaultUserAgent, c.UserAgent)
	require.NotNil(t, c.HTTP)
	assert.NotZero(t, c.HTTP.Timeout)
}

func TestHeadersAndFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/ticket:get", r.URL.Path)
		assert.Equal(t, `{"protocol":"ABC123"}`, r.URL.Query().Get("filter"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)

		_, _ = w.Write([]byte(`{"data":{"protocol":42,"title":"T","description":"D","status":"Open","priority":"Normal"}}`))
	})

	ticket, err := c.GetTicket(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, Text("42"), ticket.Protocol)
	assert.Equal(t, "T", ticket.Title)
	assert.Equal(t, "Normal", ticket.Priority)
}

func TestListCatalog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/portifolio:list", r.URL.Path)
		assert.Equal(t, "filter=%7B%7D", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"data":[
			{"id":1,"title":"Arroz","description":"Tipo 1","price":"10.50","cep":"01001-000"},
			{"id":2,"title":"Feijão","price":7.9}
		]}`))
	})

	items, err := c.ListCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, CatalogItem{ID: "1", Title: "Arroz", Description: "Tipo 1", Price: "10.50", CEP: "01001-000"}, items[0])
	assert.Equal(t, Text("7.9"), items[1].Price)
	assert.Empty(t, items[1].CEP)
}

func TestCreateSendsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sales_order:create", r.URL.Path)

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, map[string]any{
			"title":       OrderTitle,
			"total_order": 25.5,
			"status":      OrderStatusDone,
			"cep":         "01001-000",
		}, got)

		_, _ = w.Write([]byte(`{"data":{"id":7,"title":"Pedido #123","total_order":"25.50","status":"Realizada","cep":"01001-000"}}`))
	})

	order, err := c.CreateSalesOrder(context.Background(), NewOrder{
		Title:      OrderTitle,
		TotalOrder: 25.5,
		Status:     OrderStatusDone,
		CEP:        "01001-000",
	})
	require.NoError(t, err)
	assert.Equal(t, ID("7"), order.ID)
	assert.Equal(t, Text("25.50"), order.TotalOrder)
}

func TestAddOrderItem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var got OrderItem
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, OrderItem{SalesOrderID: "7", PortfolioID: "3", Quantity: 2}, got)
		_, _ = w.Write([]byte(`{"data":{"id":1,"portifolio_id":3}}`))
	})

	err := c.AddOrderItem(context.Background(), OrderItem{SalesOrderID: "7", PortfolioID: "3", Quantity: 2})
	require.NoError(t, err)
}

func TestRemoteFailures(t *testing.T) {
	tcases := []struct {
		name string
		h    http.HandlerFunc
	}{
		{
			name: "status",
			h: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "server error",
			h: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "invalid json",
			h: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":`))
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.h)
			_, err := c.CreateTicket(context.Background(), NewTicket{Title: "t"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRemote))
		})
	}
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(base, "", "", nil)
	_, err := c.ListCatalog(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemote))
}

func TestHasBody(t *testing.T) {
	assert.True(t, hasBody("post"))
	assert.True(t, hasBody(http.MethodPut))
	assert.True(t, hasBody(http.MethodPatch))
	assert.False(t, hasBody(http.MethodGet))
	assert.False(t, hasBody(http.MethodDelete))
}

func TestStringIDRoundTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"42","title":"Pedido #123"}}`))
	})

	order, err := c.CreateSalesOrder(context.Background(), NewOrder{Title: OrderTitle})
	require.NoError(t, err)
	assert.Equal(t, ID("42"), order.ID)
}

func TestIDMarshal(t *testing.T) {
	tcases := []struct {
		id  ID
		exp string
	}{
		{"42", `{"sales_order_id":42,"portifolio_id":"","quantity":0}`},
		{"ord-7", `{"sales_order_id":"ord-7","portifolio_id":"","quantity":0}`},
		{"", `{"sales_order_id":null,"portifolio_id":"","quantity":0}`},
	}
	for _, tc := range tcases {
		bs, err := json.Marshal(OrderItem{SalesOrderID: tc.id})
		require.NoError(t, err)
		assert.JSONEq(t, tc.exp, string(bs))
	}

	var items []CatalogItem
	require.NoError(t, json.Unmarshal([]byte(`[{"id":3},{"id":"x9"},{}]`), &items))
	assert.Equal(t, []ID{"3", "x9", ""}, []ID{items[0].ID, items[1].ID, items[2].ID})
}

func TestTextUnmarshal(t *testing.T) {
	var v struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":12.30,"c":null}`), &v))
	assert.Equal(t, Text("x"), v.A)
	assert.Equal(t, Text("12.30"), v.B)
	assert.Equal(t, Text(""), v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}
