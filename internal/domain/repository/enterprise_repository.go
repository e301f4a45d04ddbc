package repository

import (
	"context"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
)

// EnterpriseRepository puerto de persistencia para empresas emisoras.
type EnterpriseRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Enterprise, error)
	GetByRUC(ctx context.Context, ruc string) (*entity.Enterprise, error)
}

// BranchRepository puerto de persistencia para establecimientos y puntos de emisión.
type BranchRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
	GetEmissionPoint(ctx context.Context, id string) (*entity.EmissionPoint, error)
	// GetEmissionContext resuelve en un viaje el punto de emisión, su
	// establecimiento y la empresa dueña (datos que todo comprobante necesita).
	GetEmissionContext(ctx context.Context, emissionPointID string) (*entity.EmissionPoint, *entity.Branch, *entity.Enterprise, error)
}
