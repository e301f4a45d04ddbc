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

var _ repository.ClientRepository = (*ClientRepo)(nil)

// ClientRepo implementación de ClientRepository.
type ClientRepo struct {
	q Querier
}

// NewClientRepository construye el adaptador. Pasar pool o tx (Querier).
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

// Create persiste un cliente.
func (r *ClientRepo) Create(ctx context.Context, c *entity.Client) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO clients (id, dni, razon_social, address, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.Dni, c.RazonSocial, nullIfEmpty(c.Address), nullIfEmpty(c.Phone), nullIfEmpty(c.Email),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("el cliente con identificación %s ya existe: %w", c.Dni, err)
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente por ID.
func (r *ClientRepo) GetByID(ctx context.Context, id string) (*entity.Client, error) {
	query := clientSelect + ` WHERE id = $1`
	return scanClient(r.q.QueryRow(ctx, query, id))
}

// GetByDni obtiene un cliente por identificación.
func (r *ClientRepo) GetByDni(ctx context.Context, dni string) (*entity.Client, error) {
	query := clientSelect + ` WHERE dni = $1`
	return scanClient(r.q.QueryRow(ctx, query, dni))
}

const clientSelect = `
	SELECT id, dni, razon_social, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''),
	       created_at, updated_at
	FROM clients`

func scanClient(row pgx.Row) (*entity.Client, error) {
	var c entity.Client
	err := row.Scan(&c.ID, &c.Dni, &c.RazonSocial, &c.Address, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}
