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

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (id, enterprise_id, emission_point_id, sequence_id, client_id,
		                      estab, pto_emi, sequential, access_key, emission_date,
		                      total_without_taxes, total_discount, total_iva, total_ice, total_amount,
		                      electronic_status, sri_messages, xml_signed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.EnterpriseID, inv.EmissionPointID, inv.SequenceID, inv.ClientID,
		inv.Estab, inv.PtoEmi, inv.Sequential, inv.AccessKey, inv.EmissionDate,
		inv.TotalWithoutTaxes, inv.TotalDiscount, inv.TotalIVA, inv.TotalICE, inv.TotalAmount,
		inv.ElectronicStatus, nullIfEmpty(inv.SriMessages), nullIfEmpty(inv.XMLSigned),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("la factura %s ya existe: %w", inv.Serie(), err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateDetail persiste una línea de detalle.
func (r *InvoiceRepo) CreateDetail(ctx context.Context, d *entity.InvoiceDetail) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_details (id, invoice_id, article_id, description, note,
		                             amount, unit_value, discount, neto,
		                             iva_percentage, iva_value, ice_percentage, ice_value,
		                             subtotal, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.InvoiceID, d.ArticleID, d.Description, nullIfEmpty(d.Note),
		d.Amount, d.UnitValue, d.Discount, d.Neto,
		d.IvaPercentage, d.IvaValue, d.IcePercentage, d.IceValue,
		d.Subtotal, d.Total,
	)
	if err != nil {
		return fmt.Errorf("insert invoice detail: %w", err)
	}
	return nil
}

// UpdateElectronicStatus actualiza estado, autorización, mensajes y XML firmado.
func (r *InvoiceRepo) UpdateElectronicStatus(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET electronic_status    = $2,
		    authorization_number = COALESCE($3, authorization_number),
		    authorization_date   = COALESCE($4, authorization_date),
		    sri_messages         = COALESCE($5, sri_messages),
		    xml_signed           = COALESCE($6, xml_signed),
		    updated_at           = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		inv.ID,
		inv.ElectronicStatus,
		nullIfEmpty(inv.AuthorizationNumber),
		inv.AuthorizationDate,
		nullIfEmpty(inv.SriMessages),
		nullIfEmpty(inv.XMLSigned),
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

const invoiceColumns = `
	id, enterprise_id, emission_point_id, sequence_id, client_id,
	estab, pto_emi, sequential, access_key, emission_date,
	total_without_taxes, total_discount, total_iva, total_ice, total_amount,
	electronic_status, authorization_number, authorization_date,
	sri_messages, xml_signed, created_at, updated_at`

// GetByID obtiene una factura completa por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetByIDForUpdate obtiene la factura bloqueando su fila hasta el COMMIT.
// Dos notas de crédito concurrentes sobre la misma factura se serializan aquí:
// la segunda espera y concilia viendo lo que la primera ya confirmó.
func (r *InvoiceRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetByAccessKey obtiene una factura por su clave de acceso.
func (r *InvoiceRepo) GetByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices WHERE access_key = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, accessKey))
}

func (r *InvoiceRepo) scanOne(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var authNumber, sriMessages, xmlSigned *string
	err := row.Scan(
		&inv.ID, &inv.EnterpriseID, &inv.EmissionPointID, &inv.SequenceID, &inv.ClientID,
		&inv.Estab, &inv.PtoEmi, &inv.Sequential, &inv.AccessKey, &inv.EmissionDate,
		&inv.TotalWithoutTaxes, &inv.TotalDiscount, &inv.TotalIVA, &inv.TotalICE, &inv.TotalAmount,
		&inv.ElectronicStatus, &authNumber, &inv.AuthorizationDate,
		&sriMessages, &xmlSigned, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.AuthorizationNumber = derefStr(authNumber)
	inv.SriMessages = derefStr(sriMessages)
	inv.XMLSigned = derefStr(xmlSigned)
	return &inv, nil
}

// GetDetailsByInvoiceID devuelve las líneas de la factura en orden de inserción.
func (r *InvoiceRepo) GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	query := `
		SELECT id, invoice_id, article_id, description, COALESCE(note, ''),
		       amount, unit_value, discount, neto,
		       iva_percentage, iva_value, ice_percentage, ice_value,
		       subtotal, total
		FROM invoice_details WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice details: %w", err)
	}
	defer rows.Close()

	var out []*entity.InvoiceDetail
	for rows.Next() {
		var d entity.InvoiceDetail
		if err := rows.Scan(
			&d.ID, &d.InvoiceID, &d.ArticleID, &d.Description, &d.Note,
			&d.Amount, &d.UnitValue, &d.Discount, &d.Neto,
			&d.IvaPercentage, &d.IvaValue, &d.IcePercentage, &d.IceValue,
			&d.Subtotal, &d.Total,
		); err != nil {
			return nil, fmt.Errorf("scan invoice detail: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// GetLastSequentialBySequence devuelve el secuencial de la factura más
// reciente emitida con la secuencia ("" si no hay ninguna).
func (r *InvoiceRepo) GetLastSequentialBySequence(ctx context.Context, sequenceID string) (string, error) {
	query := `
		SELECT sequential FROM invoices
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
