package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jcisneros/facturacion-sri/internal/domain"
	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
)

var _ repository.ArticleRepository = (*ArticleRepo)(nil)

// ArticleRepo implementación de ArticleRepository (usable con pool o tx).
type ArticleRepo struct {
	q Querier
}

// NewArticleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewArticleRepository(q Querier) *ArticleRepo {
	return &ArticleRepo{q: q}
}

// GetByID obtiene un artículo por ID.
func (r *ArticleRepo) GetByID(ctx context.Context, id string) (*entity.Article, error) {
	query := `
		SELECT id, code, COALESCE(internal_code, ''), description, price, stock,
		       product_type, price_iva_flag, iva_tariff_id, COALESCE(ice_tariff_id, ''),
		       created_at, updated_at
		FROM articles WHERE id = $1`
	var a entity.Article
	err := r.q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Code, &a.InternalCode, &a.Description, &a.Price, &a.Stock,
		&a.ProductType, &a.PriceIVAFlag, &a.IvaTariffID, &a.IceTariffID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

// GetTariff obtiene una tarifa de impuesto por ID.
func (r *ArticleRepo) GetTariff(ctx context.Context, id string) (*entity.Tariff, error) {
	query := `SELECT id, name, percentage FROM tariffs WHERE id = $1`
	var t entity.Tariff
	err := r.q.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Percentage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tariff: %w", err)
	}
	return &t, nil
}

// AdjustStock suma delta al stock del artículo. El guard de la cláusula WHERE
// impide que una venta concurrente deje el stock negativo.
func (r *ArticleRepo) AdjustStock(ctx context.Context, articleID string, delta decimal.Decimal) error {
	query := `
		UPDATE articles
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0`
	tag, err := r.q.Exec(ctx, query, articleID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("artículo %s: %w", articleID, domain.ErrInsufficientStock)
	}
	return nil
}
