package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de producto: los bienes mueven stock al facturar y anular, los
// servicios no.
const (
	ProductTypeBien     = "N"
	ProductTypeServicio = "S"
)

// Flags de precio: 'I' el precio almacenado incluye IVA, 'E' lo excluye.
const (
	PriceIVAIncluded = "I"
	PriceIVAExcluded = "E"
)

// Article artículo facturable.
type Article struct {
	ID           string
	Code         string // Código principal
	InternalCode string
	Description  string
	Price        decimal.Decimal
	Stock        decimal.Decimal
	ProductType  string // 'N' bien | 'S' servicio
	PriceIVAFlag string // 'I' | 'E'
	IvaTariffID  string
	IceTariffID  string // vacío si el artículo no grava ICE
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Tariff tarifa de impuesto (porcentaje). El código de porcentaje SRI se
// deriva del porcentaje al armar el XML.
type Tariff struct {
	ID         string
	Name       string
	Percentage decimal.Decimal
}
