package sri

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	pkgsri "github.com/jcisneros/facturacion-sri/pkg/sri"
)

// ComprobanteVersion versión del esquema de factura y nota de crédito.
const ComprobanteVersion = "1.1.0"

// ElementID es el id del elemento raíz al que apunta la Reference de la firma.
const ElementID = "comprobante"

// InvoiceBuildContext datos necesarios para armar el XML de una factura.
type InvoiceBuildContext struct {
	Enterprise *entity.Enterprise
	Client     *entity.Client
	Invoice    *entity.Invoice
	Details    []*entity.InvoiceDetail
	Articles   map[string]*entity.Article // por ID, para códigos principal/interno
	Ambiente   string                     // ambiente resuelto ("1" | "2")
	Moneda     string                     // código ISO, por defecto USD
}

// CreditNoteBuildContext datos necesarios para armar el XML de una nota de crédito.
type CreditNoteBuildContext struct {
	Enterprise *entity.Enterprise
	Client     *entity.Client
	CreditNote *entity.CreditNote
	Details    []*entity.CreditNoteDetail
	Articles   map[string]*entity.Article
	Ambiente   string
	Moneda     string
}

// XMLBuilderService construye el XML canónico de los comprobantes (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// BuildInvoice genera el documento <factura>.
func (s *XMLBuilderService) BuildInvoice(ctx *InvoiceBuildContext) ([]byte, error) {
	if ctx == nil || ctx.Invoice == nil || ctx.Enterprise == nil || ctx.Client == nil {
		return nil, fmt.Errorf("sri: faltan factura, empresa o cliente en el contexto")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("factura")
	root.CreateAttr("id", ElementID)
	root.CreateAttr("version", ComprobanteVersion)

	inv := ctx.Invoice
	s.writeInfoTributaria(root, ctx.Enterprise, ctx.Ambiente, pkgsri.DocTypeFactura,
		inv.Estab, inv.PtoEmi, inv.Sequential, inv.AccessKey)

	info := root.CreateElement("infoFactura")
	addText(info, "fechaEmision", inv.EmissionDate.Format("02/01/2006"))
	addText(info, "dirEstablecimiento", ctx.Enterprise.MatrixAddress)
	addText(info, "obligadoContabilidad", pkgsri.ObligadoContabilidad(ctx.Enterprise.ObligatedAccounting))
	addText(info, "tipoIdentificacionComprador", pkgsri.IdentificationCode(ctx.Client.Dni))
	addText(info, "razonSocialComprador", ctx.Client.RazonSocial)
	addText(info, "identificacionComprador", ctx.Client.Dni)
	if ctx.Client.Address != "" {
		addText(info, "direccionComprador", ctx.Client.Address)
	}
	addText(info, "totalSinImpuestos", pkgsri.FormatDecimal(inv.TotalWithoutTaxes))
	addText(info, "totalDescuento", pkgsri.FormatDecimal(inv.TotalDiscount))

	if err := s.writeTotalConImpuestos(info, taxLinesFromInvoice(ctx.Details)); err != nil {
		return nil, err
	}

	addText(info, "propina", "0.00")
	addText(info, "importeTotal", pkgsri.FormatDecimal(inv.TotalAmount))
	addText(info, "moneda", pkgsri.MonedaDescripcion(ctx.Moneda))

	// Pagos: sin medio de pago informado se declara efectivo por el total.
	pagos := info.CreateElement("pagos")
	pago := pagos.CreateElement("pago")
	addText(pago, "formaPago", "01")
	addText(pago, "total", pkgsri.FormatDecimal(inv.TotalAmount))

	detalles := root.CreateElement("detalles")
	for _, d := range ctx.Details {
		if err := s.writeInvoiceDetail(detalles, d, ctx.Articles[d.ArticleID]); err != nil {
			return nil, err
		}
	}

	s.writeInfoAdicional(root, ctx.Client)

	doc.Indent(2)
	return doc.WriteToBytes()
}

// BuildCreditNote genera el documento <notaCredito>.
func (s *XMLBuilderService) BuildCreditNote(ctx *CreditNoteBuildContext) ([]byte, error) {
	if ctx == nil || ctx.CreditNote == nil || ctx.Enterprise == nil || ctx.Client == nil {
		return nil, fmt.Errorf("sri: faltan nota de crédito, empresa o cliente en el contexto")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("notaCredito")
	root.CreateAttr("id", ElementID)
	root.CreateAttr("version", ComprobanteVersion)

	note := ctx.CreditNote
	s.writeInfoTributaria(root, ctx.Enterprise, ctx.Ambiente, pkgsri.DocTypeNotaCredito,
		note.Estab, note.PtoEmi, note.Sequential, note.AccessKey)

	info := root.CreateElement("infoNotaCredito")
	addText(info, "fechaEmision", note.EmissionDate.Format("02/01/2006"))
	addText(info, "dirEstablecimiento", ctx.Enterprise.MatrixAddress)
	addText(info, "tipoIdentificacionComprador", pkgsri.IdentificationCode(ctx.Client.Dni))
	addText(info, "razonSocialComprador", ctx.Client.RazonSocial)
	addText(info, "identificacionComprador", ctx.Client.Dni)
	addText(info, "obligadoContabilidad", pkgsri.ObligadoContabilidad(ctx.Enterprise.ObligatedAccounting))
	addText(info, "codDocModificado", note.CodDocModificado)
	addText(info, "numDocModificado", note.NumDocModificado)
	addText(info, "fechaEmisionDocSustento", note.FechaEmisionDocSustento.Format("02/01/2006"))
	addText(info, "totalSinImpuestos", pkgsri.FormatDecimal(note.TotalWithoutTaxes))
	addText(info, "valorModificacion", pkgsri.FormatDecimal(note.ValorModificacion))
	addText(info, "moneda", pkgsri.MonedaDescripcion(ctx.Moneda))

	if err := s.writeTotalConImpuestos(info, taxLinesFromCreditNote(ctx.Details)); err != nil {
		return nil, err
	}

	addText(info, "motivo", note.Motivo)

	detalles := root.CreateElement("detalles")
	for _, d := range ctx.Details {
		if err := s.writeCreditNoteDetail(detalles, d, ctx.Articles[d.ArticleID]); err != nil {
			return nil, err
		}
	}

	s.writeInfoAdicional(root, ctx.Client)

	doc.Indent(2)
	return doc.WriteToBytes()
}

// ── secciones comunes ─────────────────────────────────────────────────────────

func (s *XMLBuilderService) writeInfoTributaria(root *etree.Element, e *entity.Enterprise, ambiente, codDoc, estab, ptoEmi, secuencial, claveAcceso string) {
	it := root.CreateElement("infoTributaria")
	addText(it, "ambiente", ambiente)
	addText(it, "tipoEmision", pkgsri.EmisionNormal)
	addText(it, "razonSocial", e.CompanyName)
	if e.CommercialName != "" {
		addText(it, "nombreComercial", e.CommercialName)
	}
	addText(it, "ruc", e.RUC)
	addText(it, "claveAcceso", claveAcceso)
	addText(it, "codDoc", codDoc)
	addText(it, "estab", estab)
	addText(it, "ptoEmi", ptoEmi)
	addText(it, "secuencial", secuencial)
	addText(it, "dirMatriz", e.MatrixAddress)
}

// taxLine agregado por código+códigoPorcentaje para <totalConImpuestos>.
type taxLine struct {
	codigo           string
	codigoPorcentaje string
	base             decimal.Decimal
	valor            decimal.Decimal
}

func taxLinesFromInvoice(details []*entity.InvoiceDetail) []lineTaxes {
	out := make([]lineTaxes, len(details))
	for i, d := range details {
		out[i] = lineTaxes{
			ivaPct: d.IvaPercentage, ivaBase: d.Subtotal, ivaValor: d.IvaValue,
			icePct: d.IcePercentage, iceValor: d.IceValue,
		}
	}
	return out
}

func taxLinesFromCreditNote(details []*entity.CreditNoteDetail) []lineTaxes {
	out := make([]lineTaxes, len(details))
	for i, d := range details {
		out[i] = lineTaxes{
			ivaPct: d.IvaPercentage, ivaBase: d.Subtotal, ivaValor: d.IvaValue,
			icePct: d.IcePercentage, iceValor: d.IceValue,
		}
	}
	return out
}

type lineTaxes struct {
	ivaPct, ivaBase, ivaValor decimal.Decimal
	icePct, iceValor          decimal.Decimal
}

// writeTotalConImpuestos agrupa los impuestos de las líneas por código y
// código de porcentaje, conservando el orden de primera aparición.
func (s *XMLBuilderService) writeTotalConImpuestos(info *etree.Element, lines []lineTaxes) error {
	var groups []*taxLine
	index := map[string]*taxLine{}

	add := func(codigo, codigoPct string, base, valor decimal.Decimal) {
		key := codigo + ":" + codigoPct
		g, ok := index[key]
		if !ok {
			g = &taxLine{codigo: codigo, codigoPorcentaje: codigoPct}
			index[key] = g
			groups = append(groups, g)
		}
		g.base = g.base.Add(base)
		g.valor = g.valor.Add(valor)
	}

	for _, l := range lines {
		ivaCode, err := pkgsri.IVAPercentageCode(l.ivaPct)
		if err != nil {
			return err
		}
		add(pkgsri.TaxCodeIVA, ivaCode, l.ivaBase, l.ivaValor)
		if l.iceValor.IsPositive() {
			add(pkgsri.TaxCodeICE, pkgsri.ICEPercentageCode, l.ivaBase, l.iceValor)
		}
	}

	tci := info.CreateElement("totalConImpuestos")
	for _, g := range groups {
		ti := tci.CreateElement("totalImpuesto")
		addText(ti, "codigo", g.codigo)
		addText(ti, "codigoPorcentaje", g.codigoPorcentaje)
		addText(ti, "baseImponible", pkgsri.FormatDecimal(g.base))
		addText(ti, "valor", pkgsri.FormatDecimal(g.valor))
	}
	return nil
}

func (s *XMLBuilderService) writeInvoiceDetail(detalles *etree.Element, d *entity.InvoiceDetail, art *entity.Article) error {
	det := detalles.CreateElement("detalle")

	codigoPrincipal, codigoInterno := articleCodes(art, d.ArticleID)
	addText(det, "codigoPrincipal", codigoPrincipal)
	if codigoInterno != "" {
		addText(det, "codigoAuxiliar", codigoInterno)
	}
	addText(det, "descripcion", d.Description)
	addText(det, "cantidad", pkgsri.FormatQuantity(d.Amount))
	addText(det, "precioUnitario", pkgsri.FormatUnitPrice(d.UnitValue))
	addText(det, "descuento", pkgsri.FormatDecimal(d.Discount))
	addText(det, "precioTotalSinImpuesto", pkgsri.FormatDecimal(d.Neto))

	if d.Note != "" {
		da := det.CreateElement("detallesAdicionales")
		detAd := da.CreateElement("detAdicional")
		detAd.CreateAttr("nombre", "nota")
		detAd.CreateAttr("valor", d.Note)
	}

	return writeLineImpuestos(det, d.IvaPercentage, d.Subtotal, d.IvaValue, d.IcePercentage, d.IceValue)
}

func (s *XMLBuilderService) writeCreditNoteDetail(detalles *etree.Element, d *entity.CreditNoteDetail, art *entity.Article) error {
	det := detalles.CreateElement("detalle")

	codigoPrincipal, codigoInterno := articleCodes(art, d.ArticleID)
	addText(det, "codigoInterno", codigoPrincipal)
	if codigoInterno != "" {
		addText(det, "codigoAdicional", codigoInterno)
	}
	addText(det, "descripcion", d.Description)
	addText(det, "cantidad", pkgsri.FormatQuantity(d.Amount))
	addText(det, "precioUnitario", pkgsri.FormatUnitPrice(d.UnitValue))
	addText(det, "descuento", pkgsri.FormatDecimal(d.Discount))
	addText(det, "precioTotalSinImpuesto", pkgsri.FormatDecimal(d.Neto))

	return writeLineImpuestos(det, d.IvaPercentage, d.Subtotal, d.IvaValue, d.IcePercentage, d.IceValue)
}

func writeLineImpuestos(det *etree.Element, ivaPct, base, ivaValor, icePct, iceValor decimal.Decimal) error {
	ivaCode, err := pkgsri.IVAPercentageCode(ivaPct)
	if err != nil {
		return err
	}

	impuestos := det.CreateElement("impuestos")

	iva := impuestos.CreateElement("impuesto")
	addText(iva, "codigo", pkgsri.TaxCodeIVA)
	addText(iva, "codigoPorcentaje", ivaCode)
	addText(iva, "tarifa", ivaPct.Round(2).StringFixed(2))
	addText(iva, "baseImponible", pkgsri.FormatDecimal(base))
	addText(iva, "valor", pkgsri.FormatDecimal(ivaValor))

	if iceValor.IsPositive() {
		ice := impuestos.CreateElement("impuesto")
		addText(ice, "codigo", pkgsri.TaxCodeICE)
		addText(ice, "codigoPorcentaje", pkgsri.ICEPercentageCode)
		addText(ice, "tarifa", icePct.Round(2).StringFixed(2))
		addText(ice, "baseImponible", pkgsri.FormatDecimal(base))
		addText(ice, "valor", pkgsri.FormatDecimal(iceValor))
	}
	return nil
}

func (s *XMLBuilderService) writeInfoAdicional(root *etree.Element, c *entity.Client) {
	fields := []struct{ nombre, valor string }{
		{"Direccion", c.Address},
		{"Telefono", c.Phone},
		{"Email", c.Email},
		{"NumDocumento", c.Dni},
	}

	var ia *etree.Element
	for _, f := range fields {
		if f.valor == "" {
			continue
		}
		if ia == nil {
			ia = root.CreateElement("infoAdicional")
		}
		campo := ia.CreateElement("campoAdicional")
		campo.CreateAttr("nombre", f.nombre)
		campo.SetText(f.valor)
	}
}

func articleCodes(art *entity.Article, fallback string) (principal, interno string) {
	if art == nil {
		return fallback, ""
	}
	principal = art.Code
	if principal == "" {
		principal = fallback
	}
	return principal, art.InternalCode
}

func addText(parent *etree.Element, tag, text string) {
	parent.CreateElement(tag).SetText(text)
}
