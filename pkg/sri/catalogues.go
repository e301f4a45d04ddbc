// Package sri contiene catálogos, validaciones y la clave de acceso de
// comprobantes electrónicos SRI (Ecuador), según la Ficha Técnica de
// Comprobantes Electrónicos (esquema offline).
package sri

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Tabla 3 - Tipos de comprobante
// =============================================================================

const (
	DocTypeFactura         = "01" // Factura
	DocTypeNotaCredito     = "04" // Nota de crédito
	DocTypeNotaDebito      = "05" // Nota de débito
	DocTypeGuiaRemision    = "06" // Guía de remisión
	DocTypeComprobanteRet  = "07" // Comprobante de retención
)

// =============================================================================
// Tabla 4 - Ambiente y Tabla 2 - Tipo de emisión
// =============================================================================

const (
	AmbientePruebas    = "1"
	AmbienteProduccion = "2"

	// EmisionNormal es el único tipo de emisión vigente (la contingencia fue derogada).
	EmisionNormal = "1"
)

// =============================================================================
// Tabla 6 - Tipos de identificación del comprador
// =============================================================================

const (
	IdentRUC             = "04"
	IdentCedula          = "05"
	IdentPasaporte       = "06"
	IdentConsumidorFinal = "07"
	IdentExterior        = "08"
)

// IdentificationCode devuelve el código SRI del tipo de identificación según
// el número presentado: 13 dígitos = RUC, 10 dígitos = cédula, el comodín de
// consumidor final, y pasaporte en cualquier otro caso.
func IdentificationCode(dni string) string {
	if dni == ConsumidorFinalDNI {
		return IdentConsumidorFinal
	}
	switch len(dni) {
	case 13:
		return IdentRUC
	case 10:
		return IdentCedula
	default:
		return IdentPasaporte
	}
}

// ConsumidorFinalDNI es la identificación comodín de consumidor final.
const ConsumidorFinalDNI = "9999999999999"

// =============================================================================
// Tabla 16/17 - Impuestos y tarifas
// =============================================================================

const (
	TaxCodeIVA = "2" // IVA
	TaxCodeICE = "3" // ICE

	// ICEPercentageCode es el código de porcentaje usado para las líneas ICE.
	ICEPercentageCode = "3032"
)

// IVAPercentageCode devuelve el código de porcentaje SRI para una tarifa de
// IVA. Tarifas fuera de catálogo son un error: un código equivocado en el XML
// produce un rechazo DEVUELTA difícil de diagnosticar, mejor fallar aquí.
func IVAPercentageCode(rate decimal.Decimal) (string, error) {
	// Comparación exacta: una tarifa fraccionaria (12.5, 15.5) no puede
	// degradarse al código de su parte entera.
	switch {
	case rate.IsZero():
		return "0", nil
	case rate.Equal(decimal.NewFromInt(12)):
		return "2", nil
	case rate.Equal(decimal.NewFromInt(14)):
		return "3", nil
	case rate.Equal(decimal.NewFromInt(15)):
		return "4", nil
	}
	return "", fmt.Errorf("sri: tarifa de IVA %s sin código de porcentaje en catálogo", rate.String())
}

// MonedaDescripcion mapea el código ISO de moneda a la descripción que espera
// el SRI en <moneda>.
func MonedaDescripcion(iso string) string {
	switch iso {
	case "USD":
		return "DOLAR"
	case "EUR":
		return "EURO"
	default:
		return "DOLAR"
	}
}

// ObligadoContabilidad traduce el flag de la empresa ('Y'/'N') al literal del XML.
func ObligadoContabilidad(flag string) string {
	if flag == "Y" {
		return "SI"
	}
	return "NO"
}
