package entity

import "time"

// Sequence secuencia de numeración de un punto de emisión para un tipo de
// comprobante. Code es el secuencial semilla con padding (ej: "000000100"):
// el primer comprobante emitido toma Code+1 con el mismo ancho.
type Sequence struct {
	ID              string
	EmissionPointID string
	DocumentTypeID  string
	Code            string
	Description     string
	CreatedAt       time.Time
}

// DocumentType tipo de comprobante del catálogo SRI ("01" factura, "04" nota de crédito...).
type DocumentType struct {
	ID   string
	Code string
	Name string
}
