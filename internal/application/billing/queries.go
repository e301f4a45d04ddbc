package billing

import (
	"context"
	"fmt"

	"github.com/jcisneros/facturacion-sri/internal/application/dto"
	"github.com/jcisneros/facturacion-sri/internal/domain"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
)

// BillingQueries consultas de solo lectura sobre comprobantes y secuencias.
type BillingQueries struct {
	invoiceRepo    repository.InvoiceRepository
	creditNoteRepo repository.CreditNoteRepository
	sequenceRepo   repository.SequenceRepository
	docTypeRepo    repository.DocumentTypeRepository
}

// NewBillingQueries construye el servicio de consultas.
func NewBillingQueries(
	invoiceRepo repository.InvoiceRepository,
	creditNoteRepo repository.CreditNoteRepository,
	sequenceRepo repository.SequenceRepository,
	docTypeRepo repository.DocumentTypeRepository,
) *BillingQueries {
	return &BillingQueries{
		invoiceRepo:    invoiceRepo,
		creditNoteRepo: creditNoteRepo,
		sequenceRepo:   sequenceRepo,
		docTypeRepo:    docTypeRepo,
	}
}

// GetInvoice devuelve una factura por ID.
func (q *BillingQueries) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := q.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", id, domain.ErrNotFound)
	}
	return invoiceToResponse(inv), nil
}

// GetCreditNote devuelve una nota de crédito por ID.
func (q *BillingQueries) GetCreditNote(ctx context.Context, id string) (*dto.CreditNoteResponse, error) {
	note, err := q.creditNoteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("nota de crédito %s: %w", id, domain.ErrNotFound)
	}
	return creditNoteToResponse(note), nil
}

// ListSequences lista las secuencias de numeración de un punto de emisión con
// el código de tipo de comprobante resuelto.
func (q *BillingQueries) ListSequences(ctx context.Context, emissionPointID string) ([]dto.SequenceResponse, error) {
	sequences, err := q.sequenceRepo.ListByEmissionPoint(ctx, emissionPointID)
	if err != nil {
		return nil, err
	}

	docTypes, err := q.docTypeRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	codeByID := make(map[string]string, len(docTypes))
	for _, dt := range docTypes {
		codeByID[dt.ID] = dt.Code
	}

	out := make([]dto.SequenceResponse, 0, len(sequences))
	for _, s := range sequences {
		out = append(out, dto.SequenceResponse{
			ID:              s.ID,
			EmissionPointID: s.EmissionPointID,
			DocumentType:    codeByID[s.DocumentTypeID],
			Code:            s.Code,
			Description:     s.Description,
		})
	}
	return out, nil
}
