package repository

import (
	"context"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
)

// SequenceRepository puerto de persistencia para secuencias de numeración.
type SequenceRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Sequence, error)
	// GetByEmissionPointAndDocType localiza la secuencia de un punto de emisión
	// para un tipo de comprobante ("01", "04").
	GetByEmissionPointAndDocType(ctx context.Context, emissionPointID, docTypeCode string) (*entity.Sequence, error)
	ListByEmissionPoint(ctx context.Context, emissionPointID string) ([]*entity.Sequence, error)
}

// DocumentTypeRepository catálogo de tipos de comprobante.
type DocumentTypeRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.DocumentType, error)
	List(ctx context.Context) ([]*entity.DocumentType, error)
}
