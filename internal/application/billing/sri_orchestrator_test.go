package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcisneros/facturacion-sri/internal/domain"
	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	infrasri "github.com/jcisneros/facturacion-sri/internal/infrastructure/sri"
)

type orchestratorFixture struct {
	orchestrator *SRIOrchestrator
	invoiceRepo  *memInvoiceRepo
	noteRepo     *memCreditNoteRepo
	sriClient    *fakeSRIClient
	signer       *fakeSigner
}

func newOrchestratorFixture(t *testing.T, sriClient *fakeSRIClient) *orchestratorFixture {
	t.Helper()

	invoiceRepo := newMemInvoiceRepo()
	noteRepo := newMemCreditNoteRepo()
	articles, tariffs := fixtureArticles()
	articleRepo := &memArticleRepo{articles: articles, tariffs: tariffs}
	clientRepo := &memClientRepo{clients: map[string]*entity.Client{"cli-1": fixtureClient()}}
	enterpriseRepo := &memEnterpriseRepo{enterprise: fixtureEnterprise()}
	signer := &fakeSigner{}

	orch := NewSRIOrchestrator(
		invoiceRepo, noteRepo, enterpriseRepo, clientRepo, articleRepo,
		infrasri.NewXMLBuilderService(), signer, sriClient,
		&fakeCredentialStore{}, "1", testLogger(),
	)
	return &orchestratorFixture{
		orchestrator: orch,
		invoiceRepo:  invoiceRepo,
		noteRepo:     noteRepo,
		sriClient:    sriClient,
		signer:       signer,
	}
}

func pendingInvoice() (*entity.Invoice, []*entity.InvoiceDetail) {
	inv, details := fixtureAuthorizedInvoice()
	inv.ElectronicStatus = entity.StatusPendiente
	return inv, details
}

func authorizedResult(numero string) *infrasri.AuthorizationResult {
	fecha := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return &infrasri.AuthorizationResult{
		Autorizaciones: []infrasri.Autorizacion{{
			Estado:             "AUTORIZADO",
			NumeroAutorizacion: numero,
			FechaAutorizacion:  &fecha,
			Ambiente:           "PRUEBAS",
		}},
	}
}

func TestProcessInvoice_CicloCompletoAutorizado(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		reception:     &infrasri.ReceptionResult{Estado: "RECIBIDA"},
		authorization: authorizedResult("0101202401123"),
	})
	inv, details := pendingInvoice()
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))
	for _, d := range details {
		require.NoError(t, f.invoiceRepo.CreateDetail(context.Background(), d))
	}

	processed, err := f.orchestrator.ProcessInvoice(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAutorizado, processed.ElectronicStatus)
	assert.Equal(t, "0101202401123", processed.AuthorizationNumber)
	require.NotNil(t, processed.AuthorizationDate)
	assert.Equal(t, 2024, processed.AuthorizationDate.Year())
	assert.NotEmpty(t, processed.XMLSigned)
	assert.Contains(t, processed.XMLSigned, "<factura")

	// El estado final quedó persistido.
	stored, _ := f.invoiceRepo.GetByID(context.Background(), "inv-1")
	assert.Equal(t, entity.StatusAutorizado, stored.ElectronicStatus)

	assert.Equal(t, 1, f.signer.calls)
	assert.Equal(t, 1, f.sriClient.validateCalls)
	assert.Equal(t, 1, f.sriClient.authorizeCalls)
	assert.Equal(t, inv.AccessKey, f.sriClient.lastAccessKey)
}

func TestProcessInvoice_RecepcionOKContinuaAAutorizacion(t *testing.T) {
	// Algunos ambientes del SRI responden OK en lugar de RECIBIDA; el ciclo
	// debe continuar a autorización igual.
	f := newOrchestratorFixture(t, &fakeSRIClient{
		reception:     &infrasri.ReceptionResult{Estado: "OK"},
		authorization: authorizedResult("0101202401124"),
	})
	inv, details := pendingInvoice()
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))
	for _, d := range details {
		require.NoError(t, f.invoiceRepo.CreateDetail(context.Background(), d))
	}

	processed, err := f.orchestrator.ProcessInvoice(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAutorizado, processed.ElectronicStatus)
	assert.Equal(t, 1, f.sriClient.authorizeCalls)
}

func TestProcessInvoice_RecepcionDevuelta(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		reception: &infrasri.ReceptionResult{
			Estado: "DEVUELTA",
			Mensajes: []infrasri.Mensaje{{
				Identificador: "35",
				Mensaje:       "ARCHIVO NO CUMPLE ESTRUCTURA XML",
				Tipo:          "ERROR",
			}},
		},
	})
	inv, details := pendingInvoice()
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))
	for _, d := range details {
		require.NoError(t, f.invoiceRepo.CreateDetail(context.Background(), d))
	}

	processed, err := f.orchestrator.ProcessInvoice(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusDevuelta, processed.ElectronicStatus)
	assert.Contains(t, processed.SriMessages, "ARCHIVO NO CUMPLE ESTRUCTURA XML")
	// Sin RECIBIDA no se consulta autorización.
	assert.Equal(t, 0, f.sriClient.authorizeCalls)
}

func TestProcessInvoice_ErrorDeTransporte(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		receptionErr: errors.New("dial tcp: connection refused"),
	})
	inv, details := pendingInvoice()
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))
	for _, d := range details {
		require.NoError(t, f.invoiceRepo.CreateDetail(context.Background(), d))
	}

	processed, err := f.orchestrator.ProcessInvoice(context.Background(), "inv-1")
	require.NoError(t, err)

	// El comprobante queda reenviable, no se pierde.
	assert.Equal(t, entity.StatusErrorHTTP, processed.ElectronicStatus)
	assert.True(t, entity.CanSubmit(processed.ElectronicStatus))
}

func TestProcessInvoice_SinAutorizacionesEsRechazado(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		reception:     &infrasri.ReceptionResult{Estado: "RECIBIDA"},
		authorization: &infrasri.AuthorizationResult{},
	})
	inv, details := pendingInvoice()
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))
	for _, d := range details {
		require.NoError(t, f.invoiceRepo.CreateDetail(context.Background(), d))
	}

	processed, err := f.orchestrator.ProcessInvoice(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRechazado, processed.ElectronicStatus)
}

func TestProcessInvoice_EstadoFueraDeCatalogoEsDesconocido(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		reception: &infrasri.ReceptionResult{Estado: "RECIBIDA"},
		authorization: &infrasri.AuthorizationResult{
			Autorizaciones: []infrasri.Autorizacion{{Estado: "EN PROCESO"}},
		},
	})
	inv, details := pendingInvoice()
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))
	for _, d := range details {
		require.NoError(t, f.invoiceRepo.CreateDetail(context.Background(), d))
	}

	processed, err := f.orchestrator.ProcessInvoice(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDesconocido, processed.ElectronicStatus)
}

func TestProcessInvoice_EstadoNoReenviable(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{})
	inv, _ := fixtureAuthorizedInvoice() // ya AUTORIZADO
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))

	_, err := f.orchestrator.ProcessInvoice(context.Background(), "inv-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEstadoInvalido)
	assert.Equal(t, 0, f.sriClient.validateCalls)
}

func TestResubmit_ReutilizaXMLFirmado(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		reception:     &infrasri.ReceptionResult{Estado: "RECIBIDA"},
		authorization: authorizedResult("999"),
	})
	inv, _ := pendingInvoice()
	inv.ElectronicStatus = entity.StatusErrorHTTP
	inv.XMLSigned = "<factura id=\"comprobante\"></factura>"
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))

	resp, err := f.orchestrator.Resubmit(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAutorizado, resp.ElectronicStatus)
	assert.Equal(t, inv.AccessKey, resp.AccessKey)
	// El XML ya firmado se reutiliza; no se vuelve a firmar.
	assert.Equal(t, 0, f.signer.calls)
	assert.Equal(t, inv.XMLSigned, string(f.sriClient.lastSignedXML))
}

func TestResubmit_ComprobanteInexistente(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{})
	_, err := f.orchestrator.Resubmit(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckAuthorization_PersisteEnLaFactura(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		authorization: authorizedResult("777"),
	})
	inv, _ := pendingInvoice()
	inv.ElectronicStatus = entity.StatusRecibida
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))

	resp, err := f.orchestrator.CheckAuthorization(context.Background(), inv.AccessKey)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAutorizado, resp.ElectronicStatus)
	assert.Equal(t, "777", resp.AuthorizationNumber)

	stored, _ := f.invoiceRepo.GetByID(context.Background(), "inv-1")
	assert.Equal(t, entity.StatusAutorizado, stored.ElectronicStatus)
	assert.Equal(t, "777", stored.AuthorizationNumber)
}

func TestCheckAuthorization_EstadoTerminalNoConsultaAlSRI(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		authorization: authorizedResult("999"),
	})
	fecha := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	inv, _ := fixtureAuthorizedInvoice() // ya AUTORIZADO
	inv.AuthorizationNumber = "777"
	inv.AuthorizationDate = &fecha
	require.NoError(t, f.invoiceRepo.Create(context.Background(), inv))

	resp, err := f.orchestrator.CheckAuthorization(context.Background(), inv.AccessKey)
	require.NoError(t, err)

	// Devuelve lo persistido sin tocar los web services.
	assert.Equal(t, entity.StatusAutorizado, resp.ElectronicStatus)
	assert.Equal(t, "777", resp.AuthorizationNumber)
	assert.Equal(t, 0, f.sriClient.authorizeCalls)
}

func TestCheckAuthorization_ClaveSinComprobante(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		authorization: authorizedResult("1"),
	})
	_, err := f.orchestrator.CheckAuthorization(context.Background(), "4900000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessCreditNote_CicloCompletoAutorizado(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeSRIClient{
		reception:     &infrasri.ReceptionResult{Estado: "RECIBIDA"},
		authorization: authorizedResult("456"),
	})

	inv, _ := fixtureAuthorizedInvoice()
	note := &entity.CreditNote{
		ID:              "nc-1",
		EnterpriseID:    "emp-1",
		EmissionPointID: "pe-1",
		SequenceID:      "seq-04",
		ClientID:        "cli-1",
		InvoiceID:       inv.ID,
		Estab:           "001",
		PtoEmi:          "001",
		Sequential:      "000000001",
		AccessKey:       "2908202604099234567800120020010000000421234567817",
		EmissionDate:    time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),

		MotiveType:              entity.MotiveAnularTodaFactura,
		Motivo:                  "Anulación de la factura",
		CodDocModificado:        "01",
		NumDocModificado:        inv.Serie(),
		FechaEmisionDocSustento: inv.EmissionDate,
		ValorModificacion:       inv.TotalAmount,

		TotalWithoutTaxes: inv.TotalWithoutTaxes,
		TotalIVA:          inv.TotalIVA,
		TotalAmount:       inv.TotalAmount,
		ElectronicStatus:  entity.StatusPendiente,
	}
	require.NoError(t, f.noteRepo.Create(context.Background(), note))
	require.NoError(t, f.noteRepo.CreateDetail(context.Background(), &entity.CreditNoteDetail{
		ID:           "ncd-1",
		CreditNoteID: "nc-1",
		ArticleID:    "art-1",
		Description:  "Teclado inalámbrico",
		Amount:       decimal.NewFromInt(1),
		UnitValue:    inv.TotalWithoutTaxes,
		Neto:         inv.TotalWithoutTaxes,
		IvaValue:     inv.TotalIVA,
		Subtotal:     inv.TotalWithoutTaxes,
		Total:        inv.TotalAmount,
	}))

	processed, err := f.orchestrator.ProcessCreditNote(context.Background(), "nc-1")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAutorizado, processed.ElectronicStatus)
	assert.Equal(t, "456", processed.AuthorizationNumber)
	assert.Contains(t, processed.XMLSigned, "<notaCredito")

	stored, _ := f.noteRepo.GetByID(context.Background(), "nc-1")
	assert.Equal(t, entity.StatusAutorizado, stored.ElectronicStatus)
}
