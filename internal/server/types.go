package server

import "strings"

// normalizer is implemented by tool arguments that clean up their fields
// before validation.
type normalizer interface {
	normalize()
}

type catalogArgs struct {
	CEP string `json:"cep" jsonschema:"description=CEP de entrega" validate:"required"`
}

func (a *catalogArgs) normalize() {
	a.CEP = strings.TrimSpace(a.CEP)
}

type purchaseItem struct {
	FoodID   string  `json:"food_id" jsonschema:"description=ID do alimento no CRM" validate:"required"`
	Quantity float64 `json:"quantity" jsonschema:"description=Quantidade,minimum=1" validate:"min=1"`
}

type purchaseArgs struct {
	Items      []purchaseItem `json:"items" jsonschema:"description=Itens do pedido,minItems=1" validate:"required,min=1,dive"`
	TotalOrder *float64       `json:"total_order" jsonschema:"description=Total do pedido,minimum=0" validate:"required,min=0"`
	CEP        string         `json:"cep" jsonschema:"description=CEP de entrega" validate:"required"`
}

func (a *purchaseArgs) normalize() {
	a.CEP = strings.TrimSpace(a.CEP)
	for i := range a.Items {
		a.Items[i].FoodID = strings.TrimSpace(a.Items[i].FoodID)
	}
}

type ticketLookupArgs struct {
	Protocol string `json:"protocol" jsonschema:"description=Protocolo do ticket" validate:"required"`
}

func (a *ticketLookupArgs) normalize() {
	a.Protocol = strings.TrimSpace(a.Protocol)
}

type ticketOpenArgs struct {
	Title       string `json:"title" jsonschema:"description=Título do ticket" validate:"required"`
	Description string `json:"description" jsonschema:"description=Descrição do problema" validate:"required"`
}

func (a *ticketOpenArgs) normalize() {
	a.Title = strings.TrimSpace(a.Title)
	a.Description = strings.TrimSpace(a.Description)
}
