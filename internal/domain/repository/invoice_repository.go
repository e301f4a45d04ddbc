package repository

import (
	"context"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
)

// InvoiceRepository puerto de persistencia para facturas y detalles.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateDetail(ctx context.Context, detail *entity.InvoiceDetail) error
	// UpdateElectronicStatus actualiza estado, autorización, mensajes y XML firmado.
	UpdateElectronicStatus(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// GetByIDForUpdate obtiene la factura bloqueando su fila hasta el fin de la
	// transacción; serializa las emisiones concurrentes sobre el mismo sustento.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Invoice, error)
	GetByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error)
	GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error)
	// GetLastSequentialBySequence devuelve el secuencial del comprobante más
	// reciente emitido con la secuencia dada ("" si no hay ninguno).
	GetLastSequentialBySequence(ctx context.Context, sequenceID string) (string, error)
}
