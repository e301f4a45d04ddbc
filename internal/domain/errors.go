package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")

	// Facturación electrónica.
	ErrFacturaNoAutorizada  = errors.New("la factura no está autorizada por el SRI")
	ErrConsumidorFinal      = errors.New("no se puede emitir nota de crédito a consumidor final")
	ErrNotaCreditoDuplicada = errors.New("la factura ya tiene una nota de crédito vigente")
	ErrCantidadExcedida     = errors.New("la cantidad solicitada excede lo disponible para anular")
	ErrSecuenciaInvalida    = errors.New("secuencial almacenado no numérico")
	ErrCertificadoVencido   = errors.New("el certificado de firma está fuera de su periodo de vigencia")
	ErrEstadoInvalido       = errors.New("transición de estado no permitida para el comprobante")
)
