package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)
var _ repository.DocumentTypeRepository = (*DocumentTypeRepo)(nil)

// SequenceRepo implementación de SequenceRepository.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// GetByID obtiene una secuencia por ID.
func (r *SequenceRepo) GetByID(ctx context.Context, id string) (*entity.Sequence, error) {
	query := `
		SELECT id, emission_point_id, document_type_id, code, COALESCE(description, ''), created_at
		FROM sequences WHERE id = $1`
	return scanSequence(r.q.QueryRow(ctx, query, id))
}

// GetByEmissionPointAndDocType localiza la secuencia de un punto de emisión
// para un tipo de comprobante ("01", "04"). Se bloquea la fila (FOR UPDATE):
// la asignación del secuencial corre dentro de la transacción de emisión y dos
// emisiones concurrentes deben serializarse aquí.
func (r *SequenceRepo) GetByEmissionPointAndDocType(ctx context.Context, emissionPointID, docTypeCode string) (*entity.Sequence, error) {
	query := `
		SELECT s.id, s.emission_point_id, s.document_type_id, s.code, COALESCE(s.description, ''), s.created_at
		FROM sequences s
		JOIN document_types dt ON dt.id = s.document_type_id
		WHERE s.emission_point_id = $1 AND dt.code = $2
		FOR UPDATE OF s`
	return scanSequence(r.q.QueryRow(ctx, query, emissionPointID, docTypeCode))
}

// ListByEmissionPoint lista las secuencias de un punto de emisión.
func (r *SequenceRepo) ListByEmissionPoint(ctx context.Context, emissionPointID string) ([]*entity.Sequence, error) {
	query := `
		SELECT id, emission_point_id, document_type_id, code, COALESCE(description, ''), created_at
		FROM sequences WHERE emission_point_id = $1 ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, emissionPointID)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var out []*entity.Sequence
	for rows.Next() {
		var s entity.Sequence
		if err := rows.Scan(&s.ID, &s.EmissionPointID, &s.DocumentTypeID, &s.Code, &s.Description, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func scanSequence(row pgx.Row) (*entity.Sequence, error) {
	var s entity.Sequence
	err := row.Scan(&s.ID, &s.EmissionPointID, &s.DocumentTypeID, &s.Code, &s.Description, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return &s, nil
}

// DocumentTypeRepo catálogo de tipos de comprobante.
type DocumentTypeRepo struct {
	q Querier
}

// NewDocumentTypeRepository construye el adaptador.
func NewDocumentTypeRepository(q Querier) *DocumentTypeRepo {
	return &DocumentTypeRepo{q: q}
}

// GetByCode obtiene un tipo de comprobante por código SRI.
func (r *DocumentTypeRepo) GetByCode(ctx context.Context, code string) (*entity.DocumentType, error) {
	query := `SELECT id, code, name FROM document_types WHERE code = $1`
	var dt entity.DocumentType
	err := r.q.QueryRow(ctx, query, code).Scan(&dt.ID, &dt.Code, &dt.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document type: %w", err)
	}
	return &dt, nil
}

// List devuelve el catálogo completo.
func (r *DocumentTypeRepo) List(ctx context.Context) ([]*entity.DocumentType, error) {
	rows, err := r.q.Query(ctx, `SELECT id, code, name FROM document_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer rows.Close()

	var out []*entity.DocumentType
	for rows.Next() {
		var dt entity.DocumentType
		if err := rows.Scan(&dt.ID, &dt.Code, &dt.Name); err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		out = append(out, &dt)
	}
	return out, rows.Err()
}
