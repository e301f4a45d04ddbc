package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcisneros/facturacion-sri/internal/application/dto"
	"github.com/jcisneros/facturacion-sri/internal/domain"
	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
)

// CreditNoteReconciler calcula las líneas y totales de una nota de crédito a
// partir de la factura original y lo ya anulado por notas vigentes. Es puro:
// no toca repositorios, todo el contexto entra por parámetros.
type CreditNoteReconciler struct{}

// NewCreditNoteReconciler crea el servicio.
func NewCreditNoteReconciler() *CreditNoteReconciler {
	return &CreditNoteReconciler{}
}

// ReconcileResult líneas y totales calculados para la nota de crédito.
type ReconcileResult struct {
	Lines []*entity.CreditNoteDetail

	TotalWithoutTaxes decimal.Decimal
	TotalIVA          decimal.Decimal
	TotalICE          decimal.Decimal
	TotalAmount       decimal.Decimal

	// ValorModificacion lo que va en <valorModificacion>: el total de la
	// factura al anularla completa, la suma base+impuestos en los demás casos.
	ValorModificacion decimal.Decimal
}

// Reconcile despacha según el tipo de motivo.
//
// voidedByArticle acumula, por artículo, la cantidad ya anulada en notas de
// crédito vigentes (toda nota cuyo estado no sea RECHAZADO cuenta: una nota
// PENDIENTE o en trámite reserva su cantidad).
func (r *CreditNoteReconciler) Reconcile(
	motiveType string,
	invoice *entity.Invoice,
	invoiceDetails []*entity.InvoiceDetail,
	activePriorNotes int,
	voidedByArticle map[string]decimal.Decimal,
	requests []dto.CreditNoteLineRequest,
) (*ReconcileResult, error) {
	switch motiveType {
	case entity.MotiveAnularTodaFactura:
		return r.fullVoid(invoice, invoiceDetails, activePriorNotes)
	case entity.MotiveAnularProductosParcial:
		return r.partialVoid(invoiceDetails, voidedByArticle, requests)
	case entity.MotiveCorregirDescuentosPrecios:
		return r.priceCorrection(invoiceDetails, requests)
	default:
		return nil, fmt.Errorf("tipo de motivo %q no soportado: %w", motiveType, domain.ErrInvalidInput)
	}
}

// fullVoid copia todas las líneas de la factura. Una sola anulación total por
// factura: cualquier nota previa vigente la bloquea.
func (r *CreditNoteReconciler) fullVoid(invoice *entity.Invoice, details []*entity.InvoiceDetail, activePriorNotes int) (*ReconcileResult, error) {
	if activePriorNotes > 0 {
		return nil, fmt.Errorf("la factura tiene %d nota(s) de crédito vigente(s): %w", activePriorNotes, domain.ErrNotaCreditoDuplicada)
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("la factura no tiene líneas: %w", domain.ErrInvalidInput)
	}

	res := &ReconcileResult{}
	for _, d := range details {
		res.Lines = append(res.Lines, &entity.CreditNoteDetail{
			ArticleID:     d.ArticleID,
			Description:   d.Description,
			Amount:        d.Amount,
			UnitValue:     d.UnitValue,
			Discount:      d.Discount,
			Neto:          d.Neto,
			IvaPercentage: d.IvaPercentage,
			IvaValue:      d.IvaValue,
			IcePercentage: d.IcePercentage,
			IceValue:      d.IceValue,
			Subtotal:      d.Subtotal,
			Total:         d.Total,
		})
		res.TotalWithoutTaxes = res.TotalWithoutTaxes.Add(d.Neto)
		res.TotalIVA = res.TotalIVA.Add(d.IvaValue)
		res.TotalICE = res.TotalICE.Add(d.IceValue)
		res.TotalAmount = res.TotalAmount.Add(d.Total)
	}
	// En la anulación total el valor de modificación es el total de la
	// factura tal como se autorizó, no la suma recalculada.
	res.ValorModificacion = invoice.TotalAmount
	return res, nil
}

// partialVoid anula cantidades parciales por artículo, escalando los montos
// de la línea original en proporción a la cantidad solicitada.
func (r *CreditNoteReconciler) partialVoid(
	details []*entity.InvoiceDetail,
	voidedByArticle map[string]decimal.Decimal,
	requests []dto.CreditNoteLineRequest,
) (*ReconcileResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("anulación parcial sin líneas: %w", domain.ErrInvalidInput)
	}

	byArticle := indexByArticle(details)
	res := &ReconcileResult{}

	for _, req := range requests {
		orig, ok := byArticle[req.ArticleID]
		if !ok {
			return nil, fmt.Errorf("el artículo %s no está en la factura: %w", req.ArticleID, domain.ErrInvalidInput)
		}
		if !req.Amount.IsPositive() {
			return nil, fmt.Errorf("cantidad a anular no positiva para el artículo %s: %w", req.ArticleID, domain.ErrInvalidInput)
		}

		available := orig.Amount.Sub(voidedByArticle[req.ArticleID])
		if req.Amount.GreaterThan(available) {
			return nil, fmt.Errorf("artículo %s: solicitado %s, disponible %s: %w",
				req.ArticleID, req.Amount.String(), available.String(), domain.ErrCantidadExcedida)
		}

		ratio := req.Amount.Div(orig.Amount)
		line := &entity.CreditNoteDetail{
			ArticleID:     orig.ArticleID,
			Description:   orig.Description,
			Amount:        req.Amount,
			UnitValue:     orig.UnitValue,
			Discount:      orig.Discount.Mul(ratio).Round(2),
			Neto:          orig.Neto.Mul(ratio).Round(2),
			IvaPercentage: orig.IvaPercentage,
			IvaValue:      orig.IvaValue.Mul(ratio).Round(2),
			IcePercentage: orig.IcePercentage,
			IceValue:      orig.IceValue.Mul(ratio).Round(2),
			Subtotal:      orig.Subtotal.Mul(ratio).Round(2),
			Total:         orig.Total.Mul(ratio).Round(2),
		}
		res.Lines = append(res.Lines, line)
		res.TotalWithoutTaxes = res.TotalWithoutTaxes.Add(line.Neto)
		res.TotalIVA = res.TotalIVA.Add(line.IvaValue)
		res.TotalICE = res.TotalICE.Add(line.IceValue)
		res.TotalAmount = res.TotalAmount.Add(line.Total)
	}

	res.ValorModificacion = res.TotalWithoutTaxes.Add(res.TotalIVA).Add(res.TotalICE)
	return res, nil
}

// priceCorrection emite líneas por la diferencia entre lo facturado y el
// precio/descuento corregido. No valida cantidades: la corrección aplica
// sobre toda la cantidad facturada de la línea.
func (r *CreditNoteReconciler) priceCorrection(
	details []*entity.InvoiceDetail,
	requests []dto.CreditNoteLineRequest,
) (*ReconcileResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("corrección sin líneas: %w", domain.ErrInvalidInput)
	}

	byArticle := indexByArticle(details)
	res := &ReconcileResult{}

	for _, req := range requests {
		orig, ok := byArticle[req.ArticleID]
		if !ok {
			return nil, fmt.Errorf("el artículo %s no está en la factura: %w", req.ArticleID, domain.ErrInvalidInput)
		}
		if req.CorrectedUnitValue == nil && req.CorrectedDiscount == nil {
			return nil, fmt.Errorf("artículo %s: la corrección requiere precio o descuento nuevo: %w", req.ArticleID, domain.ErrInvalidInput)
		}

		// Diferencia a favor del comprador: precio cobrado de más por la
		// cantidad facturada, más el descuento que faltó aplicar.
		priceDiff := decimal.Zero
		if req.CorrectedUnitValue != nil {
			priceDiff = orig.UnitValue.Sub(*req.CorrectedUnitValue)
		}
		discountDiff := decimal.Zero
		if req.CorrectedDiscount != nil {
			discountDiff = req.CorrectedDiscount.Sub(orig.Discount)
		}

		netoDiff := priceDiff.Mul(orig.Amount).Add(discountDiff).Round(2)
		if !netoDiff.IsPositive() {
			return nil, fmt.Errorf("artículo %s: la corrección no genera saldo a favor del comprador: %w", req.ArticleID, domain.ErrInvalidInput)
		}
		ivaDiff := netoDiff.Mul(orig.IvaPercentage).Div(decimal.NewFromInt(100)).Round(2)

		line := &entity.CreditNoteDetail{
			ArticleID:     orig.ArticleID,
			Description:   "CORRECCIÓN - " + orig.Description,
			Amount:        orig.Amount,
			UnitValue:     priceDiff,
			Discount:      decimal.Zero,
			Neto:          netoDiff,
			IvaPercentage: orig.IvaPercentage,
			IvaValue:      ivaDiff,
			Subtotal:      netoDiff,
			Total:         netoDiff.Add(ivaDiff),
		}
		res.Lines = append(res.Lines, line)
		res.TotalWithoutTaxes = res.TotalWithoutTaxes.Add(line.Neto)
		res.TotalIVA = res.TotalIVA.Add(line.IvaValue)
		res.TotalAmount = res.TotalAmount.Add(line.Total)
	}

	res.ValorModificacion = res.TotalWithoutTaxes.Add(res.TotalIVA).Add(res.TotalICE)
	return res, nil
}

func indexByArticle(details []*entity.InvoiceDetail) map[string]*entity.InvoiceDetail {
	m := make(map[string]*entity.InvoiceDetail, len(details))
	for _, d := range details {
		m[d.ArticleID] = d
	}
	return m
}
