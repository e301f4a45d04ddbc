package sri

import "github.com/shopspring/decimal"

// FormatDecimal formatea montos para el XML: punto decimal, 2 decimales,
// sin separador de miles (ej: 1500.00).
func FormatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// FormatUnitPrice formatea el precio unitario con 6 decimales adicionales de
// precisión y el prefijo de dos espacios que consume el validador del SRI.
func FormatUnitPrice(d decimal.Decimal) string {
	return "  " + d.Round(8).StringFixed(8)
}

// FormatQuantity formatea cantidades con 2 decimales.
func FormatQuantity(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
