package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
)

var _ repository.CreditNoteRepository = (*CreditNoteRepo)(nil)

// CreditNoteRepo implementación de CreditNoteRepository (usable con pool o tx).
type CreditNoteRepo struct {
	q Querier
}

// NewCreditNoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

// Create persiste la cabecera de la nota de crédito.
func (r *CreditNoteRepo) Create(ctx context.Context, n *entity.CreditNote) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `
		INSERT INTO credit_notes (id, enterprise_id, emission_point_id, sequence_id, client_id, invoice_id,
		                          estab, pto_emi, sequential, access_key, emission_date,
		                          motive_type, motivo,
		                          cod_doc_modificado, num_doc_modificado, fecha_emision_doc_sustento, valor_modificacion,
		                          total_without_taxes, total_iva, total_ice, total_amount,
		                          electronic_status, sri_messages, xml_signed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`
	_, err := r.q.Exec(ctx, query,
		n.ID, n.EnterpriseID, n.EmissionPointID, n.SequenceID, n.ClientID, n.InvoiceID,
		n.Estab, n.PtoEmi, n.Sequential, n.AccessKey, n.EmissionDate,
		n.MotiveType, n.Motivo,
		n.CodDocModificado, n.NumDocModificado, n.FechaEmisionDocSustento, n.ValorModificacion,
		n.TotalWithoutTaxes, n.TotalIVA, n.TotalICE, n.TotalAmount,
		n.ElectronicStatus, nullIfEmpty(n.SriMessages), nullIfEmpty(n.XMLSigned),
		n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("la nota de crédito %s ya existe: %w", n.Serie(), err)
		}
		return fmt.Errorf("insert credit note: %w", err)
	}
	return nil
}

// CreateDetail persiste una línea de detalle.
func (r *CreditNoteRepo) CreateDetail(ctx context.Context, d *entity.CreditNoteDetail) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `
		INSERT INTO credit_note_details (id, credit_note_id, article_id, description,
		                                 amount, unit_value, discount, neto,
		                                 iva_percentage, iva_value, ice_percentage, ice_value,
		                                 subtotal, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.CreditNoteID, d.ArticleID, d.Description,
		d.Amount, d.UnitValue, d.Discount, d.Neto,
		d.IvaPercentage, d.IvaValue, d.IcePercentage, d.IceValue,
		d.Subtotal, d.Total,
	)
	if err != nil {
		return fmt.Errorf("insert credit note detail: %w", err)
	}
	return nil
}

// UpdateElectronicStatus actualiza estado, autorización, mensajes y XML firmado.
func (r *CreditNoteRepo) UpdateElectronicStatus(ctx context.Context, n *entity.CreditNote) error {
	query := `
		UPDATE credit_notes
		SET electronic_status    = $2,
		    authorization_number = COALESCE($3, authorization_number),
		    authorization_date   = COALESCE($4, authorization_date),
		    sri_messages         = COALESCE($5, sri_messages),
		    xml_signed           = COALESCE($6, xml_signed),
		    updated_at           = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		n.ID,
		n.ElectronicStatus,
		nullIfEmpty(n.AuthorizationNumber),
		n.AuthorizationDate,
		nullIfEmpty(n.SriMessages),
		nullIfEmpty(n.XMLSigned),
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update credit note: %w", err)
	}
	return nil
}

const creditNoteColumns = `
	id, enterprise_id, emission_point_id, sequence_id, client_id, invoice_id,
	estab, pto_emi, sequential, access_key, emission_date,
	motive_type, motivo,
	cod_doc_modificado, num_doc_modificado, fecha_emision_doc_sustento, valor_modificacion,
	total_without_taxes, total_iva, total_ice, total_amount,
	electronic_status, authorization_number, authorization_date,
	sri_messages, xml_signed, created_at, updated_at`

// GetByID obtiene una nota de crédito por ID.
func (r *CreditNoteRepo) GetByID(ctx context.Context, id string) (*entity.CreditNote, error) {
	query := `SELECT` + creditNoteColumns + ` FROM credit_notes WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetByAccessKey obtiene una nota de crédito por su clave de acceso.
func (r *CreditNoteRepo) GetByAccessKey(ctx context.Context, accessKey string) (*entity.CreditNote, error) {
	query := `SELECT` + creditNoteColumns + ` FROM credit_notes WHERE access_key = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, accessKey))
}

func (r *CreditNoteRepo) scanOne(row pgx.Row) (*entity.CreditNote, error) {
	var n entity.CreditNote
	var authNumber, sriMessages, xmlSigned *string
	err := row.Scan(
		&n.ID, &n.EnterpriseID, &n.EmissionPointID, &n.SequenceID, &n.ClientID, &n.InvoiceID,
		&n.Estab, &n.PtoEmi, &n.Sequential, &n.AccessKey, &n.EmissionDate,
		&n.MotiveType, &n.Motivo,
		&n.CodDocModificado, &n.NumDocModificado, &n.FechaEmisionDocSustento, &n.ValorModificacion,
		&n.TotalWithoutTaxes, &n.TotalIVA, &n.TotalICE, &n.TotalAmount,
		&n.ElectronicStatus, &authNumber, &n.AuthorizationDate,
		&sriMessages, &xmlSigned, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credit note: %w", err)
	}
	n.AuthorizationNumber = derefStr(authNumber)
	n.SriMessages = derefStr(sriMessages)
	n.XMLSigned = derefStr(xmlSigned)
	return &n, nil
}

// GetDetailsByCreditNoteID devuelve las líneas de la nota en orden de inserción.
func (r *CreditNoteRepo) GetDetailsByCreditNoteID(ctx context.Context, creditNoteID string) ([]*entity.CreditNoteDetail, error) {
	query := `
		SELECT id, credit_note_id, article_id, description,
		       amount, unit_value, discount, neto,
		       iva_percentage, iva_value, ice_percentage, ice_value,
		       subtotal, total
		FROM credit_note_details WHERE credit_note_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, creditNoteID)
	if err != nil {
		return nil, fmt.Errorf("get credit note details: %w", err)
	}
	defer rows.Close()

	var out []*entity.CreditNoteDetail
	for rows.Next() {
		var d entity.CreditNoteDetail
		if err := rows.Scan(
			&d.ID, &d.CreditNoteID, &d.ArticleID, &d.Description,
			&d.Amount, &d.UnitValue, &d.Discount, &d.Neto,
			&d.IvaPercentage, &d.IvaValue, &d.IcePercentage, &d.IceValue,
			&d.Subtotal, &d.Total,
		); err != nil {
			return nil, fmt.Errorf("scan credit note detail: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// ListByInvoice devuelve todas las notas de crédito emitidas sobre una factura.
func (r *CreditNoteRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.CreditNote, error) {
	query := `SELECT` + creditNoteColumns + ` FROM credit_notes WHERE invoice_id = $1 ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list credit notes: %w", err)
	}
	defer rows.Close()

	var out []*entity.CreditNote
	for rows.Next() {
		var n entity.CreditNote
		var authNumber, sriMessages, xmlSigned *string
		if err := rows.Scan(
			&n.ID, &n.EnterpriseID, &n.EmissionPointID, &n.SequenceID, &n.ClientID, &n.InvoiceID,
			&n.Estab, &n.PtoEmi, &n.Sequential, &n.AccessKey, &n.EmissionDate,
			&n.MotiveType, &n.Motivo,
			&n.CodDocModificado, &n.NumDocModificado, &n.FechaEmisionDocSustento, &n.ValorModificacion,
			&n.TotalWithoutTaxes, &n.TotalIVA, &n.TotalICE, &n.TotalAmount,
			&n.ElectronicStatus, &authNumber, &n.AuthorizationDate,
			&sriMessages, &xmlSigned, &n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan credit note: %w", err)
		}
		n.AuthorizationNumber = derefStr(authNumber)
		n.SriMessages = derefStr(sriMessages)
		n.XMLSigned = derefStr(xmlSigned)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// GetLastSequentialBySequence devuelve el secuencial de la nota más reciente
// emitida con la secuencia ("" si no hay ninguna).
func (r *CreditNoteRepo) GetLastSequentialBySequence(ctx context.Context, sequenceID string) (string, error) {
	query := `
		SELECT sequential FROM credit_notes
		WHERE sequence_id = $1
		ORDER BY created_at DESC, sequential DESC
		LIMIT 1`
	var sequential string
	err := r.q.QueryRow(ctx, query, sequenceID).Scan(&sequential)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get last sequential: %w", err)
	}
	return sequential, nil
}
