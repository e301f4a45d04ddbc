package billing

import (
	"context"
	"crypto/tls"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción que incluye
// los repos que participan en la emisión de un comprobante. La asignación del
// secuencial y el insert del comprobante viven en la misma transacción para
// que dos emisiones concurrentes no compartan número.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		creditNoteRepo repository.CreditNoteRepository,
		sequenceRepo repository.SequenceRepository,
		articleRepo repository.ArticleRepository,
	) error) error
}

// CredentialStore resuelve el certificado de firma de una empresa: localiza
// el .p12, descifra su contraseña y valida la vigencia. El material del
// certificado nunca entra por HTTP.
type CredentialStore interface {
	Load(ctx context.Context, enterprise *entity.Enterprise) (tls.Certificate, error)
}
