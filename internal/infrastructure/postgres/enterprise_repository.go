package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
)

var _ repository.EnterpriseRepository = (*EnterpriseRepo)(nil)
var _ repository.BranchRepository = (*BranchRepo)(nil)

// EnterpriseRepo implementación de EnterpriseRepository.
type EnterpriseRepo struct {
	q Querier
}

// NewEnterpriseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEnterpriseRepository(q Querier) *EnterpriseRepo {
	return &EnterpriseRepo{q: q}
}

const enterpriseColumns = `
	id, ruc, company_name, commercial_name, matrix_address, obligated_accounting,
	environment, electronic_signature, key_signature, signature_from, signature_until,
	phone, email, created_at, updated_at`

// GetByID obtiene una empresa por ID.
func (r *EnterpriseRepo) GetByID(ctx context.Context, id string) (*entity.Enterprise, error) {
	query := `SELECT` + enterpriseColumns + ` FROM enterprises WHERE id = $1`
	return scanEnterprise(r.q.QueryRow(ctx, query, id))
}

// GetByRUC obtiene una empresa por RUC.
func (r *EnterpriseRepo) GetByRUC(ctx context.Context, ruc string) (*entity.Enterprise, error) {
	query := `SELECT` + enterpriseColumns + ` FROM enterprises WHERE ruc = $1`
	return scanEnterprise(r.q.QueryRow(ctx, query, ruc))
}

func scanEnterprise(row pgx.Row) (*entity.Enterprise, error) {
	var e entity.Enterprise
	var commercialName, environment, signature, keySignature, phone, email *string
	err := row.Scan(
		&e.ID, &e.RUC, &e.CompanyName, &commercialName, &e.MatrixAddress, &e.ObligatedAccounting,
		&environment, &signature, &keySignature, &e.SignatureFrom, &e.SignatureUntil,
		&phone, &email, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get enterprise: %w", err)
	}
	e.CommercialName = derefStr(commercialName)
	e.Environment = derefStr(environment)
	e.ElectronicSignature = derefStr(signature)
	e.KeySignature = derefStr(keySignature)
	e.Phone = derefStr(phone)
	e.Email = derefStr(email)
	return &e, nil
}

// BranchRepo implementación de BranchRepository (establecimientos y puntos de emisión).
type BranchRepo struct {
	q Querier
}

// NewBranchRepository construye el adaptador.
func NewBranchRepository(q Querier) *BranchRepo {
	return &BranchRepo{q: q}
}

// GetByID obtiene un establecimiento por ID.
func (r *BranchRepo) GetByID(ctx context.Context, id string) (*entity.Branch, error) {
	query := `SELECT id, enterprise_id, code, name, COALESCE(address, ''), created_at FROM branches WHERE id = $1`
	var b entity.Branch
	err := r.q.QueryRow(ctx, query, id).Scan(&b.ID, &b.EnterpriseID, &b.Code, &b.Name, &b.Address, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}

// GetEmissionPoint obtiene un punto de emisión por ID.
func (r *BranchRepo) GetEmissionPoint(ctx context.Context, id string) (*entity.EmissionPoint, error) {
	query := `SELECT id, branch_id, code, COALESCE(description, ''), created_at FROM emission_points WHERE id = $1`
	var p entity.EmissionPoint
	err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.BranchID, &p.Code, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get emission point: %w", err)
	}
	return &p, nil
}

// GetEmissionContext resuelve en un viaje el punto de emisión, su
// establecimiento y la empresa dueña.
func (r *BranchRepo) GetEmissionContext(ctx context.Context, emissionPointID string) (*entity.EmissionPoint, *entity.Branch, *entity.Enterprise, error) {
	query := `
		SELECT p.id, p.branch_id, p.code, COALESCE(p.description, ''), p.created_at,
		       b.id, b.enterprise_id, b.code, b.name, COALESCE(b.address, ''), b.created_at,
		       e.id, e.ruc, e.company_name, e.commercial_name, e.matrix_address, e.obligated_accounting,
		       e.environment, e.electronic_signature, e.key_signature, e.signature_from, e.signature_until,
		       e.phone, e.email, e.created_at, e.updated_at
		FROM emission_points p
		JOIN branches b ON b.id = p.branch_id
		JOIN enterprises e ON e.id = b.enterprise_id
		WHERE p.id = $1`

	var p entity.EmissionPoint
	var b entity.Branch
	var e entity.Enterprise
	var commercialName, environment, signature, keySignature, phone, email *string
	err := r.q.QueryRow(ctx, query, emissionPointID).Scan(
		&p.ID, &p.BranchID, &p.Code, &p.Description, &p.CreatedAt,
		&b.ID, &b.EnterpriseID, &b.Code, &b.Name, &b.Address, &b.CreatedAt,
		&e.ID, &e.RUC, &e.CompanyName, &commercialName, &e.MatrixAddress, &e.ObligatedAccounting,
		&environment, &signature, &keySignature, &e.SignatureFrom, &e.SignatureUntil,
		&phone, &email, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("get emission context: %w", err)
	}
	e.CommercialName = derefStr(commercialName)
	e.Environment = derefStr(environment)
	e.ElectronicSignature = derefStr(signature)
	e.KeySignature = derefStr(keySignature)
	e.Phone = derefStr(phone)
	e.Email = derefStr(email)
	return &p, &b, &e, nil
}
