// Package sri implementa la integración con los web services de comprobantes
// electrónicos del SRI (Ecuador): recepción, autorización y construcción del
// XML del comprobante.
package sri

import (
	"context"
	"time"
)

// ── Resultados de los web services ────────────────────────────────────────────

// Mensaje mensaje informativo o de error devuelto por el SRI.
type Mensaje struct {
	Identificador        string
	Mensaje              string
	InformacionAdicional string
	Tipo                 string // "ERROR" | "ADVERTENCIA" | "INFORMATIVO"
}

// ReceptionResult resultado de validarComprobante.
type ReceptionResult struct {
	Estado   string // "RECIBIDA" | "DEVUELTA"
	Mensajes []Mensaje
}

// Autorizacion entrada de autorización devuelta por autorizacionComprobante.
type Autorizacion struct {
	Estado             string // "AUTORIZADO" | "NO AUTORIZADO" | ...
	NumeroAutorizacion string
	FechaAutorizacion  *time.Time
	Ambiente           string
	Mensajes           []Mensaje
}

// AuthorizationResult resultado de autorizacionComprobante.
type AuthorizationResult struct {
	ClaveAcceso    string
	Autorizaciones []Autorizacion
}

// ── Puerto (interfaz) ─────────────────────────────────────────────────────────

// Client define el puerto de salida hacia los web services del SRI.
// La implementación concreta usa SOAP; para tests se puede inyectar un mock.
type Client interface {
	// ValidateDocument envía el XML firmado (en Base64 dentro del envelope)
	// a recepción. Devuelve error solo ante fallos de transporte; una
	// DEVUELTA llega como resultado, no como error.
	ValidateDocument(ctx context.Context, signedXML []byte) (*ReceptionResult, error)
	// AuthorizeDocument consulta la autorización de un comprobante por su
	// clave de acceso.
	AuthorizeDocument(ctx context.Context, accessKey string) (*AuthorizationResult, error)
}
