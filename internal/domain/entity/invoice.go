package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados electrónicos de un comprobante frente al SRI.
//
//	PENDIENTE ──envío──▶ RECIBIDA | DEVUELTA | ERROR_HTTP
//	RECIBIDA ──autorización──▶ AUTORIZADO | RECHAZADO | DESCONOCIDO
const (
	StatusPendiente   = "PENDIENTE"   // Creado y firmado, aún no enviado (o envío fallido recuperable)
	StatusRecibida    = "RECIBIDA"    // Recepción SRI aceptó el comprobante
	StatusDevuelta    = "DEVUELTA"    // Recepción SRI lo devolvió con errores
	StatusErrorHTTP   = "ERROR_HTTP"  // No se pudo contactar al SRI (reintentar)
	StatusAutorizado  = "AUTORIZADO"  // Autorización SRI emitió número de autorización
	StatusRechazado   = "RECHAZADO"   // Autorización SRI lo rechazó (o no registró autorizaciones)
	StatusDesconocido = "DESCONOCIDO" // Autorización SRI devolvió un estado fuera de catálogo
)

// CanSubmit indica si el comprobante puede (re)enviarse a recepción.
func CanSubmit(status string) bool {
	switch status {
	case StatusPendiente, StatusDevuelta, StatusErrorHTTP:
		return true
	}
	return false
}

// CanAuthorize indica si tiene sentido consultar autorización.
func CanAuthorize(status string) bool {
	switch status {
	case StatusRecibida, StatusDesconocido, StatusErrorHTTP:
		return true
	}
	return false
}

// Invoice cabecera de una factura electrónica.
type Invoice struct {
	ID              string
	EnterpriseID    string
	EmissionPointID string
	SequenceID      string
	ClientID        string

	// Serie y numeración snapshot al momento de emitir.
	Estab      string // código de establecimiento (3 dígitos)
	PtoEmi     string // código de punto de emisión (3 dígitos)
	Sequential string // secuencial con padding (ej: "000000123")
	AccessKey  string // clave de acceso de 49 dígitos

	EmissionDate time.Time

	TotalWithoutTaxes decimal.Decimal
	TotalDiscount     decimal.Decimal
	TotalIVA          decimal.Decimal
	TotalICE          decimal.Decimal
	TotalAmount       decimal.Decimal

	ElectronicStatus    string
	AuthorizationNumber string
	AuthorizationDate   *time.Time
	SriMessages         string // mensajes devueltos por el SRI (texto plano concatenado)
	XMLSigned           string // XML firmado del comprobante

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Serie devuelve "estab-ptoEmi-secuencial", el formato de documento modificado
// que usan las notas de crédito.
func (i *Invoice) Serie() string {
	return i.Estab + "-" + i.PtoEmi + "-" + i.Sequential
}
