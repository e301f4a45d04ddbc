package entity

import "github.com/shopspring/decimal"

// InvoiceDetail línea de factura. Los montos se guardan ya redondeados a 2
// decimales, salvo UnitValue que conserva la precisión del precio.
type InvoiceDetail struct {
	ID        string
	InvoiceID string
	ArticleID string

	Description string
	Note        string // va al XML como detalle adicional

	Amount    decimal.Decimal // cantidad
	UnitValue decimal.Decimal // precio unitario sin IVA
	Discount  decimal.Decimal
	Neto      decimal.Decimal // cantidad*precio - descuento

	IvaPercentage decimal.Decimal
	IvaValue      decimal.Decimal
	IcePercentage decimal.Decimal
	IceValue      decimal.Decimal

	Subtotal decimal.Decimal // neto (base imponible)
	Total    decimal.Decimal // neto + iva + ice
}
