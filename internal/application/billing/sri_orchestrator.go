package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jcisneros/facturacion-sri/internal/application/dto"
	"github.com/jcisneros/facturacion-sri/internal/domain"
	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
	infrasri "github.com/jcisneros/facturacion-sri/internal/infrastructure/sri"
	"github.com/jcisneros/facturacion-sri/pkg/logger"
	pkgsri "github.com/jcisneros/facturacion-sri/pkg/sri"
)

// SRIOrchestrator orquesta el ciclo electrónico completo de un comprobante:
//
//	XML → Firma XAdES-BES → Envío SOAP (recepción) → Autorización → Update DB
//
// Máquina de estados que persiste cada transición:
//
//	PENDIENTE → RECIBIDA | DEVUELTA | ERROR_HTTP → AUTORIZADO | RECHAZADO | DESCONOCIDO
//
// El procesamiento es síncrono dentro de la petición: el emisor necesita la
// respuesta del SRI antes de entregar el comprobante.
type SRIOrchestrator struct {
	invoiceRepo    repository.InvoiceRepository
	creditNoteRepo repository.CreditNoteRepository
	enterpriseRepo repository.EnterpriseRepository
	clientRepo     repository.ClientRepository
	articleRepo    repository.ArticleRepository

	xmlBuilder  *infrasri.XMLBuilderService
	signer      pkgsri.Signer
	sriClient   infrasri.Client
	credentials CredentialStore

	defaultEnvironment string // ambiente global si la empresa no define uno
	log                *logger.Logger
}

// NewSRIOrchestrator construye el orquestador con todas sus dependencias.
func NewSRIOrchestrator(
	invoiceRepo repository.InvoiceRepository,
	creditNoteRepo repository.CreditNoteRepository,
	enterpriseRepo repository.EnterpriseRepository,
	clientRepo repository.ClientRepository,
	articleRepo repository.ArticleRepository,
	xmlBuilder *infrasri.XMLBuilderService,
	signer pkgsri.Signer,
	sriClient infrasri.Client,
	credentials CredentialStore,
	defaultEnvironment string,
	log *logger.Logger,
) *SRIOrchestrator {
	return &SRIOrchestrator{
		invoiceRepo:        invoiceRepo,
		creditNoteRepo:     creditNoteRepo,
		enterpriseRepo:     enterpriseRepo,
		clientRepo:         clientRepo,
		articleRepo:        articleRepo,
		xmlBuilder:         xmlBuilder,
		signer:             signer,
		sriClient:          sriClient,
		credentials:        credentials,
		defaultEnvironment: defaultEnvironment,
		log:                log,
	}
}

// resolveAmbiente prioriza el ambiente de la empresa sobre el global.
func (o *SRIOrchestrator) resolveAmbiente(e *entity.Enterprise) string {
	if e.Environment != "" {
		return e.Environment
	}
	if o.defaultEnvironment != "" {
		return o.defaultEnvironment
	}
	return pkgsri.AmbientePruebas
}

// ═══════════════════════════════════════════════════════════════════════════
// Facturas
// ═══════════════════════════════════════════════════════════════════════════

// ProcessInvoice firma, envía y autoriza una factura recién creada (PENDIENTE).
func (o *SRIOrchestrator) ProcessInvoice(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	inv, err := o.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil || inv == nil {
		return nil, fmt.Errorf("factura %s no encontrada: %w", invoiceID, domain.ErrNotFound)
	}
	if !entity.CanSubmit(inv.ElectronicStatus) {
		return nil, fmt.Errorf("factura en estado %q: %w", inv.ElectronicStatus, domain.ErrEstadoInvalido)
	}

	enterprise, client, err := o.fetchParties(ctx, inv.EnterpriseID, inv.ClientID)
	if err != nil {
		return nil, err
	}
	ambiente := o.resolveAmbiente(enterprise)

	// ── 1. Firmar (solo si aún no hay XML firmado de un intento previo) ──
	if inv.XMLSigned == "" {
		details, err := o.invoiceRepo.GetDetailsByInvoiceID(ctx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("detalles de la factura: %w", err)
		}
		articles, err := o.fetchArticles(ctx, articleIDsFromInvoice(details))
		if err != nil {
			return nil, err
		}

		xmlBytes, err := o.xmlBuilder.BuildInvoice(&infrasri.InvoiceBuildContext{
			Enterprise: enterprise,
			Client:     client,
			Invoice:    inv,
			Details:    details,
			Articles:   articles,
			Ambiente:   ambiente,
			Moneda:     "USD",
		})
		if err != nil {
			return nil, fmt.Errorf("construir XML: %w", err)
		}

		signedXML, err := o.signDocument(ctx, enterprise, xmlBytes)
		if err != nil {
			return nil, err
		}
		inv.XMLSigned = string(signedXML)
		inv.UpdatedAt = time.Now()
		if err := o.invoiceRepo.UpdateElectronicStatus(ctx, inv); err != nil {
			return nil, fmt.Errorf("persistir XML firmado: %w", err)
		}
	}

	// ── 2. Recepción ──
	status, msgs := o.submit(ctx, inv.AccessKey, inv.XMLSigned)
	inv.ElectronicStatus = status
	inv.SriMessages = joinMessages(msgs)
	inv.UpdatedAt = time.Now()
	if err := o.invoiceRepo.UpdateElectronicStatus(ctx, inv); err != nil {
		return nil, fmt.Errorf("persistir estado %s: %w", status, err)
	}
	if status != entity.StatusRecibida {
		o.log.Warn().Str("clave", inv.AccessKey).Str("estado", status).Msg("recepción no aceptó la factura")
		return inv, nil
	}

	// ── 3. Autorización ──
	authStatus, numero, fecha, authMsgs, err := o.authorize(ctx, inv.AccessKey)
	if err != nil {
		// La recepción quedó persistida; la autorización se puede reconsultar.
		o.log.Error().Err(err).Str("clave", inv.AccessKey).Msg("consulta de autorización fallida")
		return inv, nil
	}
	inv.ElectronicStatus = authStatus
	inv.AuthorizationNumber = numero
	inv.AuthorizationDate = fecha
	if m := joinMessages(authMsgs); m != "" {
		inv.SriMessages = m
	}
	inv.UpdatedAt = time.Now()
	if err := o.invoiceRepo.UpdateElectronicStatus(ctx, inv); err != nil {
		return nil, fmt.Errorf("persistir autorización: %w", err)
	}

	o.log.Info().Str("clave", inv.AccessKey).Str("estado", authStatus).Msg("factura procesada")
	return inv, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Notas de crédito
// ═══════════════════════════════════════════════════════════════════════════

// ProcessCreditNote firma, envía y autoriza una nota de crédito (PENDIENTE).
func (o *SRIOrchestrator) ProcessCreditNote(ctx context.Context, creditNoteID string) (*entity.CreditNote, error) {
	note, err := o.creditNoteRepo.GetByID(ctx, creditNoteID)
	if err != nil || note == nil {
		return nil, fmt.Errorf("nota de crédito %s no encontrada: %w", creditNoteID, domain.ErrNotFound)
	}
	if !entity.CanSubmit(note.ElectronicStatus) {
		return nil, fmt.Errorf("nota de crédito en estado %q: %w", note.ElectronicStatus, domain.ErrEstadoInvalido)
	}

	enterprise, client, err := o.fetchParties(ctx, note.EnterpriseID, note.ClientID)
	if err != nil {
		return nil, err
	}
	ambiente := o.resolveAmbiente(enterprise)

	if note.XMLSigned == "" {
		details, err := o.creditNoteRepo.GetDetailsByCreditNoteID(ctx, note.ID)
		if err != nil {
			return nil, fmt.Errorf("detalles de la nota de crédito: %w", err)
		}
		articles, err := o.fetchArticles(ctx, articleIDsFromCreditNote(details))
		if err != nil {
			return nil, err
		}

		xmlBytes, err := o.xmlBuilder.BuildCreditNote(&infrasri.CreditNoteBuildContext{
			Enterprise: enterprise,
			Client:     client,
			CreditNote: note,
			Details:    details,
			Articles:   articles,
			Ambiente:   ambiente,
			Moneda:     "USD",
		})
		if err != nil {
			return nil, fmt.Errorf("construir XML: %w", err)
		}

		signedXML, err := o.signDocument(ctx, enterprise, xmlBytes)
		if err != nil {
			return nil, err
		}
		note.XMLSigned = string(signedXML)
		note.UpdatedAt = time.Now()
		if err := o.creditNoteRepo.UpdateElectronicStatus(ctx, note); err != nil {
			return nil, fmt.Errorf("persistir XML firmado: %w", err)
		}
	}

	status, msgs := o.submit(ctx, note.AccessKey, note.XMLSigned)
	note.ElectronicStatus = status
	note.SriMessages = joinMessages(msgs)
	note.UpdatedAt = time.Now()
	if err := o.creditNoteRepo.UpdateElectronicStatus(ctx, note); err != nil {
		return nil, fmt.Errorf("persistir estado %s: %w", status, err)
	}
	if status != entity.StatusRecibida {
		o.log.Warn().Str("clave", note.AccessKey).Str("estado", status).Msg("recepción no aceptó la nota de crédito")
		return note, nil
	}

	authStatus, numero, fecha, authMsgs, err := o.authorize(ctx, note.AccessKey)
	if err != nil {
		o.log.Error().Err(err).Str("clave", note.AccessKey).Msg("consulta de autorización fallida")
		return note, nil
	}
	note.ElectronicStatus = authStatus
	note.AuthorizationNumber = numero
	note.AuthorizationDate = fecha
	if m := joinMessages(authMsgs); m != "" {
		note.SriMessages = m
	}
	note.UpdatedAt = time.Now()
	if err := o.creditNoteRepo.UpdateElectronicStatus(ctx, note); err != nil {
		return nil, fmt.Errorf("persistir autorización: %w", err)
	}

	o.log.Info().Str("clave", note.AccessKey).Str("estado", authStatus).Msg("nota de crédito procesada")
	return note, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Reenvío y consulta de autorización
// ═══════════════════════════════════════════════════════════════════════════

// Resubmit reintenta el envío de un comprobante en estado recuperable
// (PENDIENTE, DEVUELTA o ERROR_HTTP). Busca primero factura, luego nota.
func (o *SRIOrchestrator) Resubmit(ctx context.Context, documentID string) (*dto.SubmissionResponse, error) {
	if inv, err := o.invoiceRepo.GetByID(ctx, documentID); err == nil && inv != nil {
		processed, err := o.ProcessInvoice(ctx, documentID)
		if err != nil {
			return nil, err
		}
		return &dto.SubmissionResponse{AccessKey: processed.AccessKey, ElectronicStatus: processed.ElectronicStatus}, nil
	}
	if note, err := o.creditNoteRepo.GetByID(ctx, documentID); err == nil && note != nil {
		processed, err := o.ProcessCreditNote(ctx, documentID)
		if err != nil {
			return nil, err
		}
		return &dto.SubmissionResponse{AccessKey: processed.AccessKey, ElectronicStatus: processed.ElectronicStatus}, nil
	}
	return nil, fmt.Errorf("comprobante %s: %w", documentID, domain.ErrNotFound)
}

// CheckAuthorization consulta autorización por clave de acceso y persiste la
// transición en el comprobante dueño de la clave. En estados donde la consulta
// no tiene sentido (terminales, o nunca recibidos) devuelve lo persistido sin
// tocar al SRI.
func (o *SRIOrchestrator) CheckAuthorization(ctx context.Context, accessKey string) (*dto.AuthorizationStatusResponse, error) {
	if inv, err := o.invoiceRepo.GetByAccessKey(ctx, accessKey); err == nil && inv != nil {
		if !entity.CanAuthorize(inv.ElectronicStatus) {
			return authorizationResponse(accessKey, inv.ElectronicStatus, inv.AuthorizationNumber, inv.AuthorizationDate, nil), nil
		}
		status, numero, fecha, msgs, err := o.authorize(ctx, accessKey)
		if err != nil {
			return nil, err
		}
		inv.ElectronicStatus = status
		inv.AuthorizationNumber = numero
		inv.AuthorizationDate = fecha
		if m := joinMessages(msgs); m != "" {
			inv.SriMessages = m
		}
		inv.UpdatedAt = time.Now()
		return authorizationResponse(accessKey, status, numero, fecha, msgs), o.invoiceRepo.UpdateElectronicStatus(ctx, inv)
	}
	if note, err := o.creditNoteRepo.GetByAccessKey(ctx, accessKey); err == nil && note != nil {
		if !entity.CanAuthorize(note.ElectronicStatus) {
			return authorizationResponse(accessKey, note.ElectronicStatus, note.AuthorizationNumber, note.AuthorizationDate, nil), nil
		}
		status, numero, fecha, msgs, err := o.authorize(ctx, accessKey)
		if err != nil {
			return nil, err
		}
		note.ElectronicStatus = status
		note.AuthorizationNumber = numero
		note.AuthorizationDate = fecha
		if m := joinMessages(msgs); m != "" {
			note.SriMessages = m
		}
		note.UpdatedAt = time.Now()
		return authorizationResponse(accessKey, status, numero, fecha, msgs), o.creditNoteRepo.UpdateElectronicStatus(ctx, note)
	}
	return nil, fmt.Errorf("clave de acceso %s: %w", accessKey, domain.ErrNotFound)
}

func authorizationResponse(accessKey, status, numero string, fecha *time.Time, msgs []infrasri.Mensaje) *dto.AuthorizationStatusResponse {
	return &dto.AuthorizationStatusResponse{
		AccessKey:           accessKey,
		ElectronicStatus:    status,
		AuthorizationNumber: numero,
		AuthorizationDate:   fecha,
		Messages:            toDTOMessages(msgs),
	}
}

// ── helpers privados ──────────────────────────────────────────────────────────

func (o *SRIOrchestrator) fetchParties(ctx context.Context, enterpriseID, clientID string) (*entity.Enterprise, *entity.Client, error) {
	enterprise, err := o.enterpriseRepo.GetByID(ctx, enterpriseID)
	if err != nil || enterprise == nil {
		return nil, nil, fmt.Errorf("empresa %s no encontrada: %w", enterpriseID, domain.ErrNotFound)
	}
	client, err := o.clientRepo.GetByID(ctx, clientID)
	if err != nil || client == nil {
		return nil, nil, fmt.Errorf("cliente %s no encontrado: %w", clientID, domain.ErrNotFound)
	}
	return enterprise, client, nil
}

func (o *SRIOrchestrator) fetchArticles(ctx context.Context, ids []string) (map[string]*entity.Article, error) {
	out := make(map[string]*entity.Article, len(ids))
	for _, id := range ids {
		art, err := o.articleRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("artículo %s: %w", id, err)
		}
		if art != nil {
			out[id] = art
		}
	}
	return out, nil
}

func (o *SRIOrchestrator) signDocument(ctx context.Context, enterprise *entity.Enterprise, xmlBytes []byte) ([]byte, error) {
	cert, err := o.credentials.Load(ctx, enterprise)
	if err != nil {
		return nil, err
	}
	signed, err := o.signer.Sign(xmlBytes, cert)
	if err != nil {
		return nil, fmt.Errorf("firmar comprobante: %w", err)
	}
	return signed, nil
}

// submit envía a recepción. Los fallos de transporte se degradan a ERROR_HTTP:
// el comprobante queda reenviable, nunca se pierde.
func (o *SRIOrchestrator) submit(ctx context.Context, accessKey, signedXML string) (string, []infrasri.Mensaje) {
	result, err := o.sriClient.ValidateDocument(ctx, []byte(signedXML))
	if err != nil {
		o.log.Error().Err(err).Str("clave", accessKey).Msg("envío a recepción fallido")
		return entity.StatusErrorHTTP, []infrasri.Mensaje{{Identificador: "HTTP", Mensaje: err.Error(), Tipo: "ERROR"}}
	}
	switch result.Estado {
	case "RECIBIDA", "OK":
		// Algunos ambientes del SRI responden OK en lugar de RECIBIDA.
		return entity.StatusRecibida, result.Mensajes
	default:
		return entity.StatusDevuelta, result.Mensajes
	}
}

// authorize consulta autorización y traduce el resultado a estado interno.
// Sin entradas de autorización el comprobante se da por RECHAZADO.
func (o *SRIOrchestrator) authorize(ctx context.Context, accessKey string) (string, string, *time.Time, []infrasri.Mensaje, error) {
	result, err := o.sriClient.AuthorizeDocument(ctx, accessKey)
	if err != nil {
		return "", "", nil, nil, fmt.Errorf("autorización de %s: %w", accessKey, err)
	}
	if len(result.Autorizaciones) == 0 {
		return entity.StatusRechazado, "", nil, nil, nil
	}

	auth := result.Autorizaciones[0]
	switch auth.Estado {
	case "AUTORIZADO":
		return entity.StatusAutorizado, auth.NumeroAutorizacion, auth.FechaAutorizacion, auth.Mensajes, nil
	case "NO AUTORIZADO", "RECHAZADO":
		return entity.StatusRechazado, "", nil, auth.Mensajes, nil
	default:
		return entity.StatusDesconocido, "", nil, auth.Mensajes, nil
	}
}

func joinMessages(msgs []infrasri.Mensaje) string {
	if len(msgs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		p := m.Identificador + ": " + m.Mensaje
		if m.InformacionAdicional != "" {
			p += " (" + m.InformacionAdicional + ")"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "; ")
}

func toDTOMessages(msgs []infrasri.Mensaje) []dto.SriMessage {
	out := make([]dto.SriMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.SriMessage{
			Identificador:        m.Identificador,
			Mensaje:              m.Mensaje,
			InformacionAdicional: m.InformacionAdicional,
			Tipo:                 m.Tipo,
		})
	}
	return out
}

func articleIDsFromInvoice(details []*entity.InvoiceDetail) []string {
	ids := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ArticleID)
	}
	return ids
}

func articleIDsFromCreditNote(details []*entity.CreditNoteDetail) []string {
	ids := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ArticleID)
	}
	return ids
}
