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

// consumidorFinalLimit monto máximo de una factura a consumidor final sin
// identificar (normativa SRI).
var consumidorFinalLimit = decimal.NewFromInt(50)

// CreateInvoiceUseCase emite facturas electrónicas: calcula líneas y totales,
// asigna secuencial en transacción, genera la clave de acceso, descuenta
// stock de bienes y dispara el ciclo electrónico contra el SRI.
type CreateInvoiceUseCase struct {
	branchRepo  repository.BranchRepository
	clientRepo  repository.ClientRepository
	articleRepo repository.ArticleRepository

	txRunner     BillingTxRunner
	keygen       *pkgsri.AccessKeyGenerator
	orchestrator *SRIOrchestrator
	log          *logger.Logger
}

// NewCreateInvoiceUseCase construye el caso de uso.
func NewCreateInvoiceUseCase(
	branchRepo repository.BranchRepository,
	clientRepo repository.ClientRepository,
	articleRepo repository.ArticleRepository,
	txRunner BillingTxRunner,
	keygen *pkgsri.AccessKeyGenerator,
	orchestrator *SRIOrchestrator,
	log *logger.Logger,
) *CreateInvoiceUseCase {
	return &CreateInvoiceUseCase{
		branchRepo:   branchRepo,
		clientRepo:   clientRepo,
		articleRepo:  articleRepo,
		txRunner:     txRunner,
		keygen:       keygen,
		orchestrator: orchestrator,
		log:          log,
	}
}

// Execute emite la factura y la procesa contra el SRI. El comprobante queda
// persistido aunque el SRI esté caído (estado ERROR_HTTP, reenviable).
func (uc *CreateInvoiceUseCase) Execute(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("la factura requiere al menos una línea: %w", domain.ErrInvalidInput)
	}

	point, branch, enterprise, err := uc.branchRepo.GetEmissionContext(ctx, req.EmissionPointID)
	if err != nil {
		return nil, err
	}
	if point == nil || branch == nil || enterprise == nil {
		return nil, fmt.Errorf("punto de emisión %s: %w", req.EmissionPointID, domain.ErrNotFound)
	}

	client, err := uc.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("cliente %s: %w", req.ClientID, domain.ErrNotFound)
	}

	details, totals, err := uc.computeLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	if client.IsConsumidorFinal() && totals.total.GreaterThan(consumidorFinalLimit) {
		return nil, fmt.Errorf("facturas a consumidor final no pueden superar $%s, total $%s: %w",
			consumidorFinalLimit.StringFixed(2), totals.total.StringFixed(2), domain.ErrInvalidInput)
	}

	ambiente := enterprise.Environment
	if ambiente == "" {
		ambiente = pkgsri.AmbientePruebas
	}

	now := time.Now()
	invoice := &entity.Invoice{
		ID:              uuid.NewString(),
		EnterpriseID:    enterprise.ID,
		EmissionPointID: point.ID,
		ClientID:        client.ID,
		Estab:           branch.Code,
		PtoEmi:          point.Code,
		EmissionDate:    now,

		TotalWithoutTaxes: totals.withoutTaxes,
		TotalDiscount:     totals.discount,
		TotalIVA:          totals.iva,
		TotalICE:          totals.ice,
		TotalAmount:       totals.total,

		ElectronicStatus: entity.StatusPendiente,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// Numeración, clave de acceso, cabecera, detalles y stock en una sola
	// transacción: dos emisiones concurrentes nunca comparten secuencial.
	err = uc.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		_ repository.CreditNoteRepository,
		sequenceRepo repository.SequenceRepository,
		articleRepo repository.ArticleRepository,
	) error {
		sequence, err := sequenceRepo.GetByEmissionPointAndDocType(ctx, point.ID, pkgsri.DocTypeFactura)
		if err != nil {
			return err
		}
		if sequence == nil {
			return fmt.Errorf("el punto de emisión %s no tiene secuencia de facturas: %w", point.Code, domain.ErrNotFound)
		}

		lastIssued, err := invoiceRepo.GetLastSequentialBySequence(ctx, sequence.ID)
		if err != nil {
			return err
		}
		sequential, err := NextSequential(lastIssued, sequence.Code)
		if err != nil {
			return err
		}
		invoice.SequenceID = sequence.ID
		invoice.Sequential = sequential

		accessKey, err := uc.keygen.Generate(pkgsri.AccessKeyParams{
			EmissionDate: invoice.EmissionDate,
			DocType:      pkgsri.DocTypeFactura,
			RUC:          enterprise.RUC,
			Environment:  ambiente,
			Estab:        invoice.Estab,
			PtoEmi:       invoice.PtoEmi,
			Sequential:   PadSequential(sequential),
		})
		if err != nil {
			return err
		}
		invoice.AccessKey = accessKey

		if err := invoiceRepo.Create(ctx, invoice); err != nil {
			return err
		}
		for _, d := range details {
			d.ID = uuid.NewString()
			d.InvoiceID = invoice.ID
			if err := invoiceRepo.CreateDetail(ctx, d); err != nil {
				return err
			}
		}

		// Solo los bienes mueven stock; los servicios no tienen inventario.
		for i, d := range details {
			art := totals.articles[i]
			if art.ProductType != entity.ProductTypeBien {
				continue
			}
			if art.Stock.LessThan(d.Amount) {
				return fmt.Errorf("artículo %s: stock %s, solicitado %s: %w",
					art.Code, art.Stock.String(), d.Amount.String(), domain.ErrInsufficientStock)
			}
			if err := articleRepo.AdjustStock(ctx, art.ID, d.Amount.Neg()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("factura", invoice.Serie()).
		Str("clave", invoice.AccessKey).
		Str("total", invoice.TotalAmount.StringFixed(2)).
		Msg("factura emitida")

	processed, err := uc.orchestrator.ProcessInvoice(ctx, invoice.ID)
	if err != nil {
		// La factura ya existe y es reenviable; el error del ciclo electrónico
		// no revierte la emisión.
		uc.log.Error().Err(err).Str("factura", invoice.ID).Msg("ciclo electrónico fallido")
		processed = invoice
	}

	return invoiceToResponse(processed), nil
}

// invoiceTotals acumulador de totales y artículos resueltos (indexados igual
// que las líneas).
type invoiceTotals struct {
	withoutTaxes decimal.Decimal
	discount     decimal.Decimal
	iva          decimal.Decimal
	ice          decimal.Decimal
	total        decimal.Decimal
	articles     []*entity.Article
}

// computeLines resuelve artículo y tarifas por línea y calcula los montos.
// Si el precio del artículo incluye IVA ('I') se extrae la base antes de
// calcular; con 'E' el precio ya es la base.
func (uc *CreateInvoiceUseCase) computeLines(ctx context.Context, lines []dto.InvoiceLineRequest) ([]*entity.InvoiceDetail, *invoiceTotals, error) {
	hundred := decimal.NewFromInt(100)
	details := make([]*entity.InvoiceDetail, 0, len(lines))
	totals := &invoiceTotals{}

	for _, line := range lines {
		if !line.Amount.IsPositive() {
			return nil, nil, fmt.Errorf("cantidad no positiva para el artículo %s: %w", line.ArticleID, domain.ErrInvalidInput)
		}
		if line.Discount.IsNegative() {
			return nil, nil, fmt.Errorf("descuento negativo para el artículo %s: %w", line.ArticleID, domain.ErrInvalidInput)
		}

		art, err := uc.articleRepo.GetByID(ctx, line.ArticleID)
		if err != nil {
			return nil, nil, err
		}
		if art == nil {
			return nil, nil, fmt.Errorf("artículo %s: %w", line.ArticleID, domain.ErrNotFound)
		}

		ivaTariff, err := uc.articleRepo.GetTariff(ctx, art.IvaTariffID)
		if err != nil {
			return nil, nil, err
		}
		if ivaTariff == nil {
			return nil, nil, fmt.Errorf("artículo %s sin tarifa de IVA: %w", art.Code, domain.ErrInvalidInput)
		}

		unitValue := art.Price
		if art.PriceIVAFlag == entity.PriceIVAIncluded {
			unitValue = art.Price.Div(decimal.NewFromInt(1).Add(ivaTariff.Percentage.Div(hundred)))
		}

		neto := unitValue.Mul(line.Amount).Sub(line.Discount).Round(2)
		if neto.IsNegative() {
			return nil, nil, fmt.Errorf("el descuento supera el valor de la línea del artículo %s: %w", art.Code, domain.ErrInvalidInput)
		}
		ivaValue := neto.Mul(ivaTariff.Percentage).Div(hundred).Round(2)

		icePercentage := decimal.Zero
		iceValue := decimal.Zero
		if art.IceTariffID != "" {
			iceTariff, err := uc.articleRepo.GetTariff(ctx, art.IceTariffID)
			if err != nil {
				return nil, nil, err
			}
			if iceTariff != nil {
				icePercentage = iceTariff.Percentage
				iceValue = neto.Mul(iceTariff.Percentage).Div(hundred).Round(2)
			}
		}

		d := &entity.InvoiceDetail{
			ArticleID:     art.ID,
			Description:   art.Description,
			Note:          line.Note,
			Amount:        line.Amount,
			UnitValue:     unitValue,
			Discount:      line.Discount,
			Neto:          neto,
			IvaPercentage: ivaTariff.Percentage,
			IvaValue:      ivaValue,
			IcePercentage: icePercentage,
			IceValue:      iceValue,
			Subtotal:      neto,
			Total:         neto.Add(ivaValue).Add(iceValue),
		}
		details = append(details, d)
		totals.articles = append(totals.articles, art)

		totals.withoutTaxes = totals.withoutTaxes.Add(neto)
		totals.discount = totals.discount.Add(line.Discount)
		totals.iva = totals.iva.Add(ivaValue)
		totals.ice = totals.ice.Add(iceValue)
		totals.total = totals.total.Add(d.Total)
	}

	return details, totals, nil
}

func invoiceToResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	return &dto.InvoiceResponse{
		ID:                  inv.ID,
		Serie:               inv.Serie(),
		AccessKey:           inv.AccessKey,
		EmissionDate:        inv.EmissionDate,
		TotalWithoutTaxes:   inv.TotalWithoutTaxes,
		TotalDiscount:       inv.TotalDiscount,
		TotalIVA:            inv.TotalIVA,
		TotalICE:            inv.TotalICE,
		TotalAmount:         inv.TotalAmount,
		ElectronicStatus:    inv.ElectronicStatus,
		AuthorizationNumber: inv.AuthorizationNumber,
		AuthorizationDate:   inv.AuthorizationDate,
		SriMessages:         inv.SriMessages,
	}
}
