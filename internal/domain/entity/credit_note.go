package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de motivo de una nota de crédito.
const (
	MotiveAnularTodaFactura       = "ANULAR_TODA_FACTURA"
	MotiveAnularProductosParcial  = "ANULAR_PRODUCTOS_PARCIAL"
	MotiveCorregirDescuentosPrecios = "CORREGIR_DESCUENTOS_PRECIOS"
)

// CreditNote nota de crédito electrónica sobre una factura autorizada.
type CreditNote struct {
	ID              string
	EnterpriseID    string
	EmissionPointID string
	SequenceID      string
	ClientID        string
	InvoiceID       string // factura sustento

	Estab      string
	PtoEmi     string
	Sequential string
	AccessKey  string

	EmissionDate time.Time

	MotiveType string // ANULAR_TODA_FACTURA | ANULAR_PRODUCTOS_PARCIAL | CORREGIR_DESCUENTOS_PRECIOS
	Motivo     string // texto libre que va en <motivo>

	// Datos del documento modificado.
	CodDocModificado        string // siempre "01" (factura)
	NumDocModificado        string // "estab-ptoEmi-secuencial" de la factura
	FechaEmisionDocSustento time.Time
	ValorModificacion       decimal.Decimal

	TotalWithoutTaxes decimal.Decimal
	TotalIVA          decimal.Decimal
	TotalICE          decimal.Decimal
	TotalAmount       decimal.Decimal

	ElectronicStatus    string
	AuthorizationNumber string
	AuthorizationDate   *time.Time
	SriMessages         string
	XMLSigned           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Serie devuelve "estab-ptoEmi-secuencial" de la nota de crédito.
func (n *CreditNote) Serie() string {
	return n.Estab + "-" + n.PtoEmi + "-" + n.Sequential
}

// CreditNoteDetail línea de nota de crédito.
type CreditNoteDetail struct {
	ID           string
	CreditNoteID string
	ArticleID    string

	Description string

	Amount    decimal.Decimal
	UnitValue decimal.Decimal
	Discount  decimal.Decimal
	Neto      decimal.Decimal

	IvaPercentage decimal.Decimal
	IvaValue      decimal.Decimal
	IcePercentage decimal.Decimal
	IceValue      decimal.Decimal

	Subtotal decimal.Decimal
	Total    decimal.Decimal
}
