package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Facturas ──────────────────────────────────────────────────────────────────

// InvoiceLineRequest línea de la petición de factura.
type InvoiceLineRequest struct {
	ArticleID string          `json:"article_id"`
	Amount    decimal.Decimal `json:"amount"`
	Discount  decimal.Decimal `json:"discount"`
	Note      string          `json:"note,omitempty"`
}

// CreateInvoiceRequest petición de emisión de factura.
type CreateInvoiceRequest struct {
	EmissionPointID string               `json:"emission_point_id"`
	ClientID        string               `json:"client_id"`
	Lines           []InvoiceLineRequest `json:"lines"`
}

// InvoiceResponse respuesta de emisión/consulta de factura.
type InvoiceResponse struct {
	ID                  string          `json:"id"`
	Serie               string          `json:"serie"` // estab-ptoEmi-secuencial
	AccessKey           string          `json:"access_key"`
	EmissionDate        time.Time       `json:"emission_date"`
	TotalWithoutTaxes   decimal.Decimal `json:"total_without_taxes"`
	TotalDiscount       decimal.Decimal `json:"total_discount"`
	TotalIVA            decimal.Decimal `json:"total_iva"`
	TotalICE            decimal.Decimal `json:"total_ice,omitempty"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	ElectronicStatus    string          `json:"electronic_status"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	AuthorizationDate   *time.Time      `json:"authorization_date,omitempty"`
	SriMessages         string          `json:"sri_messages,omitempty"`
}

// ── Notas de crédito ──────────────────────────────────────────────────────────

// CreditNoteLineRequest línea de la petición de nota de crédito.
// Amount aplica a la anulación parcial; los campos Corrected* a la corrección
// de precios y descuentos (nil = sin cambio).
type CreditNoteLineRequest struct {
	ArticleID          string           `json:"article_id"`
	Amount             decimal.Decimal  `json:"amount,omitempty"`
	CorrectedUnitValue *decimal.Decimal `json:"corrected_unit_value,omitempty"`
	CorrectedDiscount  *decimal.Decimal `json:"corrected_discount,omitempty"`
}

// CreateCreditNoteRequest petición de emisión de nota de crédito.
type CreateCreditNoteRequest struct {
	InvoiceID  string                  `json:"invoice_id"`
	MotiveType string                  `json:"motive_type"` // ANULAR_TODA_FACTURA | ANULAR_PRODUCTOS_PARCIAL | CORREGIR_DESCUENTOS_PRECIOS
	Motivo     string                  `json:"motivo"`
	Lines      []CreditNoteLineRequest `json:"lines,omitempty"`
}

// CreditNoteResponse respuesta de emisión/consulta de nota de crédito.
type CreditNoteResponse struct {
	ID                  string          `json:"id"`
	Serie               string          `json:"serie"`
	AccessKey           string          `json:"access_key"`
	InvoiceID           string          `json:"invoice_id"`
	NumDocModificado    string          `json:"num_doc_modificado"`
	MotiveType          string          `json:"motive_type"`
	EmissionDate        time.Time       `json:"emission_date"`
	ValorModificacion   decimal.Decimal `json:"valor_modificacion"`
	TotalWithoutTaxes   decimal.Decimal `json:"total_without_taxes"`
	TotalIVA            decimal.Decimal `json:"total_iva"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	ElectronicStatus    string          `json:"electronic_status"`
	AuthorizationNumber string          `json:"authorization_number,omitempty"`
	AuthorizationDate   *time.Time      `json:"authorization_date,omitempty"`
	SriMessages         string          `json:"sri_messages,omitempty"`
}

// ── Comprobantes (envío y autorización) ───────────────────────────────────────

// SubmissionResponse resultado de (re)enviar un comprobante a recepción SRI.
type SubmissionResponse struct {
	AccessKey        string       `json:"access_key"`
	ElectronicStatus string       `json:"electronic_status"` // RECIBIDA | DEVUELTA | ERROR_HTTP
	Messages         []SriMessage `json:"messages,omitempty"`
}

// AuthorizationStatusResponse resultado de consultar autorización SRI.
type AuthorizationStatusResponse struct {
	AccessKey           string       `json:"access_key"`
	ElectronicStatus    string       `json:"electronic_status"` // AUTORIZADO | RECHAZADO | DESCONOCIDO
	AuthorizationNumber string       `json:"authorization_number,omitempty"`
	AuthorizationDate   *time.Time   `json:"authorization_date,omitempty"`
	Messages            []SriMessage `json:"messages,omitempty"`
}

// SriMessage mensaje devuelto por los web services del SRI.
type SriMessage struct {
	Identificador        string `json:"identificador"`
	Mensaje              string `json:"mensaje"`
	InformacionAdicional string `json:"informacion_adicional,omitempty"`
	Tipo                 string `json:"tipo"`
}

// ── Secuencias ────────────────────────────────────────────────────────────────

// SequenceResponse secuencia de numeración de un punto de emisión.
type SequenceResponse struct {
	ID              string `json:"id"`
	EmissionPointID string `json:"emission_point_id"`
	DocumentType    string `json:"document_type"`
	Code            string `json:"code"`
	Description     string `json:"description,omitempty"`
}
