package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcisneros/facturacion-sri/internal/application/dto"
	"github.com/jcisneros/facturacion-sri/internal/domain"
	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
	"github.com/jcisneros/facturacion-sri/pkg/logger"
	pkgsri "github.com/jcisneros/facturacion-sri/pkg/sri"
)

// CreateCreditNoteUseCase emite notas de crédito sobre facturas autorizadas.
// Valida los guardas del documento sustento, bloquea la factura y concilia
// líneas contra lo ya anulado dentro de la transacción, asigna secuencial y
// devuelve stock de los bienes cuando el motivo es de anulación.
type CreateCreditNoteUseCase struct {
	invoiceRepo    repository.InvoiceRepository
	enterpriseRepo repository.EnterpriseRepository
	clientRepo     repository.ClientRepository
	articleRepo    repository.ArticleRepository

	reconciler   *CreditNoteReconciler
	txRunner     BillingTxRunner
	keygen       *pkgsri.AccessKeyGenerator
	orchestrator *SRIOrchestrator
	log          *logger.Logger
}

// NewCreateCreditNoteUseCase construye el caso de uso.
func NewCreateCreditNoteUseCase(
	invoiceRepo repository.InvoiceRepository,
	enterpriseRepo repository.EnterpriseRepository,
	clientRepo repository.ClientRepository,
	articleRepo repository.ArticleRepository,
	reconciler *CreditNoteReconciler,
	txRunner BillingTxRunner,
	keygen *pkgsri.AccessKeyGenerator,
	orchestrator *SRIOrchestrator,
	log *logger.Logger,
) *CreateCreditNoteUseCase {
	return &CreateCreditNoteUseCase{
		invoiceRepo:    invoiceRepo,
		enterpriseRepo: enterpriseRepo,
		clientRepo:     clientRepo,
		articleRepo:    articleRepo,
		reconciler:     reconciler,
		txRunner:       txRunner,
		keygen:         keygen,
		orchestrator:   orchestrator,
		log:            log,
	}
}

// Execute emite la nota de crédito y la procesa contra el SRI.
func (uc *CreateCreditNoteUseCase) Execute(ctx context.Context, req *dto.CreateCreditNoteRequest) (*dto.CreditNoteResponse, error) {
	if req.Motivo == "" {
		return nil, fmt.Errorf("la nota de crédito requiere motivo: %w", domain.ErrInvalidInput)
	}

	// ── Guardas sobre el documento sustento (lectura rápida, sin bloqueo;
	// se reverifican bajo bloqueo dentro de la transacción) ──
	invoice, err := uc.invoiceRepo.GetByID(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("factura %s: %w", req.InvoiceID, domain.ErrNotFound)
	}
	if invoice.ElectronicStatus != entity.StatusAutorizado {
		return nil, fmt.Errorf("factura %s en estado %s: %w", invoice.Serie(), invoice.ElectronicStatus, domain.ErrFacturaNoAutorizada)
	}

	client, err := uc.clientRepo.GetByID(ctx, invoice.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("cliente %s: %w", invoice.ClientID, domain.ErrNotFound)
	}
	if client.IsConsumidorFinal() {
		return nil, fmt.Errorf("factura %s: %w", invoice.Serie(), domain.ErrConsumidorFinal)
	}

	enterprise, err := uc.enterpriseRepo.GetByID(ctx, invoice.EnterpriseID)
	if err != nil {
		return nil, err
	}
	if enterprise == nil {
		return nil, fmt.Errorf("empresa %s: %w", invoice.EnterpriseID, domain.ErrNotFound)
	}

	invoiceDetails, err := uc.invoiceRepo.GetDetailsByInvoiceID(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	ambiente := enterprise.Environment
	if ambiente == "" {
		ambiente = pkgsri.AmbientePruebas
	}

	returnStock := req.MotiveType == entity.MotiveAnularTodaFactura ||
		req.MotiveType == entity.MotiveAnularProductosParcial

	var note *entity.CreditNote
	err = uc.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		creditNoteRepo repository.CreditNoteRepository,
		sequenceRepo repository.SequenceRepository,
		articleRepo repository.ArticleRepository,
	) error {
		// Bloquea la fila de la factura: dos emisiones concurrentes sobre el
		// mismo sustento se serializan aquí y la segunda concilia viendo las
		// notas que la primera ya confirmó.
		locked, err := invoiceRepo.GetByIDForUpdate(ctx, invoice.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("factura %s: %w", invoice.ID, domain.ErrNotFound)
		}
		if locked.ElectronicStatus != entity.StatusAutorizado {
			return fmt.Errorf("factura %s en estado %s: %w", locked.Serie(), locked.ElectronicStatus, domain.ErrFacturaNoAutorizada)
		}
		invoice = locked

		// ── Lo ya anulado por notas vigentes (toda nota no RECHAZADA cuenta) ──
		activePriorNotes, voidedByArticle, err := uc.priorNotesState(ctx, creditNoteRepo, invoice.ID)
		if err != nil {
			return err
		}

		result, err := uc.reconciler.Reconcile(req.MotiveType, invoice, invoiceDetails, activePriorNotes, voidedByArticle, req.Lines)
		if err != nil {
			return err
		}

		now := time.Now()
		note = &entity.CreditNote{
			ID:              uuid.NewString(),
			EnterpriseID:    invoice.EnterpriseID,
			EmissionPointID: invoice.EmissionPointID,
			ClientID:        invoice.ClientID,
			InvoiceID:       invoice.ID,
			Estab:           invoice.Estab,
			PtoEmi:          invoice.PtoEmi,
			EmissionDate:    now,

			MotiveType: req.MotiveType,
			Motivo:     req.Motivo,

			CodDocModificado:        pkgsri.DocTypeFactura,
			NumDocModificado:        invoice.Serie(),
			FechaEmisionDocSustento: invoice.EmissionDate,
			ValorModificacion:       result.ValorModificacion,

			TotalWithoutTaxes: result.TotalWithoutTaxes,
			TotalIVA:          result.TotalIVA,
			TotalICE:          result.TotalICE,
			TotalAmount:       result.TotalAmount,

			ElectronicStatus: entity.StatusPendiente,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		sequence, err := sequenceRepo.GetByEmissionPointAndDocType(ctx, invoice.EmissionPointID, pkgsri.DocTypeNotaCredito)
		if err != nil {
			return err
		}
		if sequence == nil {
			return fmt.Errorf("el punto de emisión %s no tiene secuencia de notas de crédito: %w", invoice.PtoEmi, domain.ErrNotFound)
		}

		lastIssued, err := creditNoteRepo.GetLastSequentialBySequence(ctx, sequence.ID)
		if err != nil {
			return err
		}
		sequential, err := NextSequential(lastIssued, sequence.Code)
		if err != nil {
			return err
		}
		note.SequenceID = sequence.ID
		note.Sequential = sequential

		accessKey, err := uc.keygen.Generate(pkgsri.AccessKeyParams{
			EmissionDate: note.EmissionDate,
			DocType:      pkgsri.DocTypeNotaCredito,
			RUC:          enterprise.RUC,
			Environment:  ambiente,
			Estab:        note.Estab,
			PtoEmi:       note.PtoEmi,
			Sequential:   PadSequential(sequential),
		})
		if err != nil {
			return err
		}
		note.AccessKey = accessKey

		if err := creditNoteRepo.Create(ctx, note); err != nil {
			return err
		}
		for _, line := range result.Lines {
			line.ID = uuid.NewString()
			line.CreditNoteID = note.ID
			if err := creditNoteRepo.CreateDetail(ctx, line); err != nil {
				return err
			}
		}

		// Las anulaciones devuelven al inventario la cantidad anulada de los
		// bienes; las correcciones de precio no mueven stock.
		if returnStock {
			for _, line := range result.Lines {
				art, err := uc.articleRepo.GetByID(ctx, line.ArticleID)
				if err != nil {
					return err
				}
				if art == nil || art.ProductType != entity.ProductTypeBien {
					continue
				}
				if err := articleRepo.AdjustStock(ctx, art.ID, line.Amount); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("nota", note.Serie()).
		Str("factura", invoice.Serie()).
		Str("motivo", note.MotiveType).
		Str("valor", note.ValorModificacion.StringFixed(2)).
		Msg("nota de crédito emitida")

	processed, err := uc.orchestrator.ProcessCreditNote(ctx, note.ID)
	if err != nil {
		uc.log.Error().Err(err).Str("nota", note.ID).Msg("ciclo electrónico fallido")
		processed = note
	}

	return creditNoteToResponse(processed), nil
}

// priorNotesState cuenta las notas vigentes de la factura y acumula la
// cantidad ya anulada por artículo. Una nota RECHAZADA libera su cantidad;
// cualquier otro estado (incluida PENDIENTE) la reserva. Se ejecuta sobre el
// repositorio de la transacción, con la fila de la factura ya bloqueada.
func (uc *CreateCreditNoteUseCase) priorNotesState(ctx context.Context, creditNoteRepo repository.CreditNoteRepository, invoiceID string) (int, map[string]decimal.Decimal, error) {
	notes, err := creditNoteRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return 0, nil, err
	}

	active := 0
	voided := make(map[string]decimal.Decimal)
	for _, n := range notes {
		if n.ElectronicStatus == entity.StatusRechazado {
			continue
		}
		active++
		details, err := creditNoteRepo.GetDetailsByCreditNoteID(ctx, n.ID)
		if err != nil {
			return 0, nil, err
		}
		for _, d := range details {
			voided[d.ArticleID] = voided[d.ArticleID].Add(d.Amount)
		}
	}
	return active, voided, nil
}

func creditNoteToResponse(n *entity.CreditNote) *dto.CreditNoteResponse {
	return &dto.CreditNoteResponse{
		ID:                  n.ID,
		Serie:               n.Serie(),
		AccessKey:           n.AccessKey,
		InvoiceID:           n.InvoiceID,
		NumDocModificado:    n.NumDocModificado,
		MotiveType:          n.MotiveType,
		EmissionDate:        n.EmissionDate,
		ValorModificacion:   n.ValorModificacion,
		TotalWithoutTaxes:   n.TotalWithoutTaxes,
		TotalIVA:            n.TotalIVA,
		TotalAmount:         n.TotalAmount,
		ElectronicStatus:    n.ElectronicStatus,
		AuthorizationNumber: n.AuthorizationNumber,
		AuthorizationDate:   n.AuthorizationDate,
		SriMessages:         n.SriMessages,
	}
}
