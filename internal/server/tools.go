package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"crm-mcp/internal/crm"
)

// Tool names as advertised to MCP clients.
const (
	ToolCatalog      = "Alimentos"
	ToolPurchase     = "Comprar-Alimentos"
	ToolTicketLookup = "buscar-ticket"
	ToolTicketOpen   = "abrir-ticket"
)

// Fixed replies for failed CRM calls.
const (
	msgCatalogFailed  = "Não existe alimentos cadastrado para o CEP informado!"
	msgPurchaseFailed = "Não foi possível realizar a compra dos alimentos!"
	msgTicketNotFound = "Não foi encontrado ticket para o protocolo informado!"
	msgTicketFailed   = "Failed to open the ticket"
)

func (s *Server) registerTools() {
	addTool(s, ToolCatalog,
		"Busca todos os alimentos disponíveis para venda cadastrado no crm para o CEP informado.",
		s.listCatalog)
	addTool(s, ToolPurchase,
		"Realiza a compra de múltiplos alimentos disponíveis no CRM. Dados necessários: array de itens com ID e quantidade, total do pedido e cep de entrega.",
		s.purchase)
	addTool(s, ToolTicketLookup,
		"Solicitar informações de um ticket. Informações que o usuário deve enviar: Protocolo",
		s.lookupTicket)
	addTool(s, ToolTicketOpen,
		"Abrir um novo ticket. Informações que o usuário deve enviar: Título, Descrição",
		s.openTicket)
}

// addTool registers h under name. h runs on validated arguments only and
// returns the reply text; a failed CRM call is a reply, not a tool error.
func addTool[A any](s *Server, name, description string, h func(context.Context, *A) string) {
	tool := &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema[A](),
	}
	s.mcp.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArgs[A](s, req.Params.Arguments)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "tool", name, "reason", "invalid_arguments", "err", err.Error())
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		logger.ContextKV(ctx, xlog.DEBUG, "tool", name, "status", "called")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: h(ctx, args)}},
		}, nil
	})
}

// decodeArgs unmarshals, normalizes and validates raw tool arguments.
// Unknown keys are rejected, as the advertised schema forbids them.
func decodeArgs[A any](s *Server, raw json.RawMessage) (*A, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	args := new(A)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(args); err != nil {
		return nil, errors.Wrap(err, "invalid arguments")
	}
	if n, ok := any(args).(normalizer); ok {
		n.normalize()
	}
	if err := s.validate.Struct(args); err != nil {
		return nil, errors.Wrap(err, "invalid arguments")
	}
	return args, nil
}

// inputSchema reflects the JSON schema advertised for the arguments type A.
func inputSchema[A any]() json.RawMessage {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero A
	sc := r.Reflect(zero)
	sc.Version = ""

	bs, err := json.Marshal(sc)
	if err != nil {
		panic(fmt.Sprintf("failed to build input schema: %v", err))
	}
	return bs
}

func (s *Server) listCatalog(ctx context.Context, _ *catalogArgs) string {
	items, err := s.crm.ListCatalog(ctx)
	if err != nil {
		return msgCatalogFailed
	}

	var b strings.Builder
	b.WriteString("Alimentos disponíveis:\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "{ID: %s\n", item.ID)
		fmt.Fprintf(&b, "Título: %s\n", item.Title)
		fmt.Fprintf(&b, "Descrição: %s\n", item.Description)
		fmt.Fprintf(&b, "Preço: %s\n", item.Price)
		fmt.Fprintf(&b, "CEP: %s\n", item.CEP)
		b.WriteString("}\n")
	}
	return b.String()
}

// purchase creates the sales order and then adds every item in input order.
// Items already added are kept when a later one fails.
func (s *Server) purchase(ctx context.Context, args *purchaseArgs) string {
	order, err := s.crm.CreateSalesOrder(ctx, crm.NewOrder{
		Title:      crm.OrderTitle,
		TotalOrder: *args.TotalOrder,
		Status:     crm.OrderStatusDone,
		CEP:        args.CEP,
	})
	if err != nil {
		return msgPurchaseFailed
	}

	failed := 0
	for i, item := range args.Items {
		err := s.crm.AddOrderItem(ctx, crm.OrderItem{
			SalesOrderID: order.ID,
			PortfolioID:  item.FoodID,
			Quantity:     item.Quantity,
		})
		if err != nil {
			failed++
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "order_item_failed",
				"order_id", order.ID,
				"index", i,
				"food_id", item.FoodID)
		}
	}
	if failed > 0 {
		return msgPurchaseFailed
	}

	var b strings.Builder
	b.WriteString("Alimentos comprados com sucesso!\n\n")
	fmt.Fprintf(&b, "{ID: %s\n", order.ID)
	fmt.Fprintf(&b, "Título: %s\n", order.Title)
	fmt.Fprintf(&b, "Total: %s\n", order.TotalOrder)
	fmt.Fprintf(&b, "Status: %s\n", order.Status)
	fmt.Fprintf(&b, "CEP: %s\n", order.CEP)
	fmt.Fprintf(&b, "Itens: %d\n", len(args.Items))
	b.WriteString("}\n")
	return b.String()
}

func (s *Server) lookupTicket(ctx context.Context, args *ticketLookupArgs) string {
	t, err := s.crm.GetTicket(ctx, args.Protocol)
	if err != nil {
		return msgTicketNotFound
	}
	return fmt.Sprintf("Os dados do ticket são: - Titulo: %s - Descrição: %s - Status: %s - Prioridade: %s.",
		t.Title, t.Description, t.Status, t.Priority)
}

func (s *Server) openTicket(ctx context.Context, args *ticketOpenArgs) string {
	t, err := s.crm.CreateTicket(ctx, crm.NewTicket{
		Title:       args.Title,
		Description: args.Description,
		Status:      crm.TicketOpen,
		Priority:    crm.TicketNormal,
	})
	if err != nil {
		return msgTicketFailed
	}
	return fmt.Sprintf("O ticket foi aberto com sucesso. Segue o numero do protocolo:  %s", t.Protocol)
}
