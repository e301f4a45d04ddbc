package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcisneros/facturacion-sri/internal/application/billing"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
)

var _ billing.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunBilling inicia una transacción con los repos que participan en la emisión
// de un comprobante y hace Commit o Rollback. La asignación del secuencial, el
// insert del comprobante y el movimiento de stock viven juntos: dos emisiones
// concurrentes nunca comparten número ni descuadran inventario.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	creditNoteRepo repository.CreditNoteRepository,
	sequenceRepo repository.SequenceRepository,
	articleRepo repository.ArticleRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	invoiceRepo := NewInvoiceRepository(tx)
	creditNoteRepo := NewCreditNoteRepository(tx)
	sequenceRepo := NewSequenceRepository(tx)
	articleRepo := NewArticleRepository(tx)

	if err := fn(invoiceRepo, creditNoteRepo, sequenceRepo, articleRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
