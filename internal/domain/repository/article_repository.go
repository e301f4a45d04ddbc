package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
)

// ArticleRepository puerto de persistencia para artículos y tarifas.
type ArticleRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Article, error)
	GetTariff(ctx context.Context, id string) (*entity.Tariff, error)
	// AdjustStock suma delta al stock del artículo (negativo al facturar un
	// bien, positivo al anularlo con nota de crédito).
	AdjustStock(ctx context.Context, articleID string, delta decimal.Decimal) error
}
