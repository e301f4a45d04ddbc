package repository

import (
	"context"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
)

// ClientRepository puerto de persistencia para compradores.
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, id string) (*entity.Client, error)
	GetByDni(ctx context.Context, dni string) (*entity.Client, error)
}
