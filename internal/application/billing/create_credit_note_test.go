package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcisneros/facturacion-sri/internal/application/dto"
	"github.com/jcisneros/facturacion-sri/internal/domain"
	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	infrasri "github.com/jcisneros/facturacion-sri/internal/infrastructure/sri"
	pkgsri "github.com/jcisneros/facturacion-sri/pkg/sri"
)

type creditNoteUseCaseFixture struct {
	uc          *CreateCreditNoteUseCase
	invoiceRepo *memInvoiceRepo
	noteRepo    *memCreditNoteRepo
	articleRepo *memArticleRepo
	clientRepo  *memClientRepo
	txRunner    *fakeTxRunner
}

func newCreditNoteUseCaseFixture(t *testing.T, sriClient *fakeSRIClient) *creditNoteUseCaseFixture {
	t.Helper()

	invoiceRepo := newMemInvoiceRepo()
	noteRepo := newMemCreditNoteRepo()
	articles, tariffs := fixtureArticles()
	articleRepo := &memArticleRepo{articles: articles, tariffs: tariffs}
	clientRepo := &memClientRepo{clients: map[string]*entity.Client{"cli-1": fixtureClient()}}
	enterpriseRepo := &memEnterpriseRepo{enterprise: fixtureEnterprise()}
	sequenceRepo := &memSequenceRepo{
		sequences: []*entity.Sequence{
			{ID: "seq-01", EmissionPointID: "pe-1", DocumentTypeID: "dt-01", Code: "000000100"},
			{ID: "seq-04", EmissionPointID: "pe-1", DocumentTypeID: "dt-04", Code: "000000000"},
		},
		docTypes: map[string]string{"dt-01": "01", "dt-04": "04"},
	}
	txRunner := &fakeTxRunner{
		invoiceRepo:    invoiceRepo,
		creditNoteRepo: noteRepo,
		sequenceRepo:   sequenceRepo,
		articleRepo:    articleRepo,
	}
	keygen := pkgsri.NewAccessKeyGenerator(&fixedRandomSource{code: 87654321})

	orch := NewSRIOrchestrator(
		invoiceRepo, noteRepo, enterpriseRepo, clientRepo, articleRepo,
		infrasri.NewXMLBuilderService(), &fakeSigner{}, sriClient,
		&fakeCredentialStore{}, "1", testLogger(),
	)
	uc := NewCreateCreditNoteUseCase(
		invoiceRepo, enterpriseRepo, clientRepo, articleRepo,
		NewCreditNoteReconciler(), txRunner, keygen, orch, testLogger(),
	)

	f := &creditNoteUseCaseFixture{
		uc:          uc,
		invoiceRepo: invoiceRepo,
		noteRepo:    noteRepo,
		articleRepo: articleRepo,
		clientRepo:  clientRepo,
		txRunner:    txRunner,
	}

	// Factura autorizada de sustento.
	inv, details := fixtureAuthorizedInvoice()
	require.NoError(t, invoiceRepo.Create(context.Background(), inv))
	for _, d := range details {
		require.NoError(t, invoiceRepo.CreateDetail(context.Background(), d))
	}
	return f
}

func TestCreateCreditNote_AnulacionTotal(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())

	resp, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Anulación de la operación",
	})
	require.NoError(t, err)

	assert.Equal(t, "001-001-000000001", resp.Serie)
	assert.Equal(t, "001-001-000000001", resp.NumDocModificado)
	assert.Equal(t, "23.00", resp.ValorModificacion.StringFixed(2))
	assert.Equal(t, "20.00", resp.TotalWithoutTaxes.StringFixed(2))
	assert.Equal(t, "3.00", resp.TotalIVA.StringFixed(2))
	assert.Len(t, resp.AccessKey, pkgsri.AccessKeyLength)
	require.NoError(t, pkgsri.Verify(resp.AccessKey))
	assert.Equal(t, entity.StatusAutorizado, resp.ElectronicStatus)

	// La anulación devolvió el bien al inventario.
	require.Len(t, f.articleRepo.adjusts, 1)
	assert.Equal(t, "art-1", f.articleRepo.adjusts[0].articleID)
	assert.Equal(t, "2", f.articleRepo.adjusts[0].delta.String())
}

func TestCreateCreditNote_AnulacionParcial(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())

	resp, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularProductosParcial,
		Motivo:     "Devolución parcial",
		Lines: []dto.CreditNoteLineRequest{
			{ArticleID: "art-1", Amount: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)

	// Mitad de la línea: neto 10.00, IVA 1.50.
	assert.Equal(t, "10.00", resp.TotalWithoutTaxes.StringFixed(2))
	assert.Equal(t, "1.50", resp.TotalIVA.StringFixed(2))
	assert.Equal(t, "11.50", resp.ValorModificacion.StringFixed(2))

	require.Len(t, f.articleRepo.adjusts, 1)
	assert.Equal(t, "1", f.articleRepo.adjusts[0].delta.String())
}

func TestCreateCreditNote_CorreccionDePrecioNoMueveStock(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())

	nueve := decimal.NewFromInt(9)
	resp, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveCorregirDescuentosPrecios,
		Motivo:     "Precio facturado de más",
		Lines: []dto.CreditNoteLineRequest{
			{ArticleID: "art-1", CorrectedUnitValue: &nueve},
		},
	})
	require.NoError(t, err)

	// (10.00 - 9.00) x 2 = 2.00 de base, IVA 0.30.
	assert.Equal(t, "2.00", resp.TotalWithoutTaxes.StringFixed(2))
	assert.Equal(t, "0.30", resp.TotalIVA.StringFixed(2))
	assert.Empty(t, f.articleRepo.adjusts)
}

func TestCreateCreditNote_FacturaNoAutorizada(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())
	inv, _ := f.invoiceRepo.GetByID(context.Background(), "inv-1")
	inv.ElectronicStatus = entity.StatusDevuelta

	_, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Anulación",
	})
	assert.ErrorIs(t, err, domain.ErrFacturaNoAutorizada)
}

func TestCreateCreditNote_ConsumidorFinal(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())
	f.clientRepo.clients["cli-1"].Dni = pkgsri.ConsumidorFinalDNI
	f.clientRepo.clients["cli-1"].RazonSocial = "CONSUMIDOR FINAL"

	_, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Anulación",
	})
	assert.ErrorIs(t, err, domain.ErrConsumidorFinal)
}

func TestCreateCreditNote_AnulacionTotalDuplicada(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())

	_, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Primera anulación",
	})
	require.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Segunda anulación",
	})
	assert.ErrorIs(t, err, domain.ErrNotaCreditoDuplicada)
}

func TestCreateCreditNote_AnulacionTotalConcurrente(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())

	// Otra petición confirma su anulación total entre los guardas iniciales y
	// la transacción de esta emisión; la conciliación bajo bloqueo la ve.
	f.txRunner.before = func() {
		require.NoError(t, f.noteRepo.Create(context.Background(), &entity.CreditNote{
			ID:               "nc-previa",
			InvoiceID:        "inv-1",
			SequenceID:       "seq-04",
			Sequential:       "000000001",
			MotiveType:       entity.MotiveAnularTodaFactura,
			ElectronicStatus: entity.StatusAutorizado,
		}))
	}

	_, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Anulación",
	})
	assert.ErrorIs(t, err, domain.ErrNotaCreditoDuplicada)
	assert.Equal(t, 1, f.invoiceRepo.lockCalls)
	// La segunda anulación no emitió nada.
	assert.Empty(t, f.articleRepo.adjusts)
}

func TestCreateCreditNote_DevolucionConcurrenteExcedeLoDisponible(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())

	// Otra petición ya anuló las 2 unidades facturadas cuando esta toma el
	// bloqueo: pedir 1 más excede lo disponible.
	f.txRunner.before = func() {
		ctx := context.Background()
		require.NoError(t, f.noteRepo.Create(ctx, &entity.CreditNote{
			ID:               "nc-previa",
			InvoiceID:        "inv-1",
			SequenceID:       "seq-04",
			Sequential:       "000000001",
			MotiveType:       entity.MotiveAnularProductosParcial,
			ElectronicStatus: entity.StatusRecibida,
		}))
		require.NoError(t, f.noteRepo.CreateDetail(ctx, &entity.CreditNoteDetail{
			ID:           "ncd-previa",
			CreditNoteID: "nc-previa",
			ArticleID:    "art-1",
			Amount:       decimal.NewFromInt(2),
		}))
	}

	_, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularProductosParcial,
		Motivo:     "Devolución",
		Lines: []dto.CreditNoteLineRequest{
			{ArticleID: "art-1", Amount: decimal.NewFromInt(1)},
		},
	})
	assert.ErrorIs(t, err, domain.ErrCantidadExcedida)
}

func TestCreateCreditNote_NotaRechazadaLiberaCantidad(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())

	// Primera anulación total autorizada... y luego rechazada por el SRI.
	resp, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Primera anulación",
	})
	require.NoError(t, err)
	note, _ := f.noteRepo.GetByID(context.Background(), resp.ID)
	note.ElectronicStatus = entity.StatusRechazado

	// Con la nota rechazada la factura vuelve a admitir anulación total.
	_, err = f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Segunda anulación",
	})
	assert.NoError(t, err)
}

func TestCreateCreditNote_ParcialExcedeLoDisponible(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())

	_, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularProductosParcial,
		Motivo:     "Primera devolución",
		Lines: []dto.CreditNoteLineRequest{
			{ArticleID: "art-1", Amount: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)

	// Ya hay 1 anulada de 2 facturadas: pedir 2 más excede lo disponible.
	_, err = f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularProductosParcial,
		Motivo:     "Segunda devolución",
		Lines: []dto.CreditNoteLineRequest{
			{ArticleID: "art-1", Amount: decimal.NewFromInt(2)},
		},
	})
	assert.ErrorIs(t, err, domain.ErrCantidadExcedida)
}

func TestCreateCreditNote_FacturaInexistente(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())
	_, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "no-existe",
		MotiveType: entity.MotiveAnularTodaFactura,
		Motivo:     "Anulación",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateCreditNote_SinMotivo(t *testing.T) {
	f := newCreditNoteUseCaseFixture(t, okSRIClient())
	_, err := f.uc.Execute(context.Background(), &dto.CreateCreditNoteRequest{
		InvoiceID:  "inv-1",
		MotiveType: entity.MotiveAnularTodaFactura,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
