package repository

import (
	"context"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
)

// CreditNoteRepository puerto de persistencia para notas de crédito.
type CreditNoteRepository interface {
	Create(ctx context.Context, note *entity.CreditNote) error
	CreateDetail(ctx context.Context, detail *entity.CreditNoteDetail) error
	UpdateElectronicStatus(ctx context.Context, note *entity.CreditNote) error
	GetByID(ctx context.Context, id string) (*entity.CreditNote, error)
	GetByAccessKey(ctx context.Context, accessKey string) (*entity.CreditNote, error)
	GetDetailsByCreditNoteID(ctx context.Context, creditNoteID string) ([]*entity.CreditNoteDetail, error)
	// ListByInvoice devuelve todas las notas de crédito emitidas sobre una
	// factura (vigentes o no; el llamador filtra por estado).
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.CreditNote, error)
	// GetLastSequentialBySequence devuelve el secuencial de la nota más
	// reciente emitida con la secuencia dada ("" si no hay ninguna).
	GetLastSequentialBySequence(ctx context.Context, sequenceID string) (string, error)
}
