package billing

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcisneros/facturacion-sri/internal/domain/entity"
	"github.com/jcisneros/facturacion-sri/internal/domain/repository"
	infrasri "github.com/jcisneros/facturacion-sri/internal/infrastructure/sri"
	"github.com/jcisneros/facturacion-sri/pkg/logger"
)

// Dobles en memoria para los tests del paquete. Implementan los puertos de
// repositorio sobre maps; sin base de datos.

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "development", Level: "error"})
}

// ── Repositorios ──────────────────────────────────────────────────────────────

type memInvoiceRepo struct {
	invoices  map[string]*entity.Invoice
	details   map[string][]*entity.InvoiceDetail
	lastSeq   map[string]string // sequenceID -> último secuencial emitido
	lockCalls int               // lecturas con bloqueo de fila
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{
		invoices: map[string]*entity.Invoice{},
		details:  map[string][]*entity.InvoiceDetail{},
		lastSeq:  map[string]string{},
	}
}

func (r *memInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.invoices[inv.ID] = inv
	r.lastSeq[inv.SequenceID] = inv.Sequential
	return nil
}

func (r *memInvoiceRepo) CreateDetail(_ context.Context, d *entity.InvoiceDetail) error {
	r.details[d.InvoiceID] = append(r.details[d.InvoiceID], d)
	return nil
}

func (r *memInvoiceRepo) UpdateElectronicStatus(_ context.Context, inv *entity.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	return r.invoices[id], nil
}

func (r *memInvoiceRepo) GetByIDForUpdate(_ context.Context, id string) (*entity.Invoice, error) {
	r.lockCalls++
	return r.invoices[id], nil
}

func (r *memInvoiceRepo) GetByAccessKey(_ context.Context, key string) (*entity.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.AccessKey == key {
			return inv, nil
		}
	}
	return nil, nil
}

func (r *memInvoiceRepo) GetDetailsByInvoiceID(_ context.Context, id string) ([]*entity.InvoiceDetail, error) {
	return r.details[id], nil
}

func (r *memInvoiceRepo) GetLastSequentialBySequence(_ context.Context, sequenceID string) (string, error) {
	return r.lastSeq[sequenceID], nil
}

type memCreditNoteRepo struct {
	notes   map[string]*entity.CreditNote
	details map[string][]*entity.CreditNoteDetail
	lastSeq map[string]string
}

func newMemCreditNoteRepo() *memCreditNoteRepo {
	return &memCreditNoteRepo{
		notes:   map[string]*entity.CreditNote{},
		details: map[string][]*entity.CreditNoteDetail{},
		lastSeq: map[string]string{},
	}
}

func (r *memCreditNoteRepo) Create(_ context.Context, n *entity.CreditNote) error {
	r.notes[n.ID] = n
	r.lastSeq[n.SequenceID] = n.Sequential
	return nil
}

func (r *memCreditNoteRepo) CreateDetail(_ context.Context, d *entity.CreditNoteDetail) error {
	r.details[d.CreditNoteID] = append(r.details[d.CreditNoteID], d)
	return nil
}

func (r *memCreditNoteRepo) UpdateElectronicStatus(_ context.Context, n *entity.CreditNote) error {
	r.notes[n.ID] = n
	return nil
}

func (r *memCreditNoteRepo) GetByID(_ context.Context, id string) (*entity.CreditNote, error) {
	return r.notes[id], nil
}

func (r *memCreditNoteRepo) GetByAccessKey(_ context.Context, key string) (*entity.CreditNote, error) {
	for _, n := range r.notes {
		if n.AccessKey == key {
			return n, nil
		}
	}
	return nil, nil
}

func (r *memCreditNoteRepo) GetDetailsByCreditNoteID(_ context.Context, id string) ([]*entity.CreditNoteDetail, error) {
	return r.details[id], nil
}

func (r *memCreditNoteRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.CreditNote, error) {
	var out []*entity.CreditNote
	for _, n := range r.notes {
		if n.InvoiceID == invoiceID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memCreditNoteRepo) GetLastSequentialBySequence(_ context.Context, sequenceID string) (string, error) {
	return r.lastSeq[sequenceID], nil
}

type memEnterpriseRepo struct {
	enterprise *entity.Enterprise
}

func (r *memEnterpriseRepo) GetByID(_ context.Context, id string) (*entity.Enterprise, error) {
	if r.enterprise != nil && r.enterprise.ID == id {
		return r.enterprise, nil
	}
	return nil, nil
}

func (r *memEnterpriseRepo) GetByRUC(_ context.Context, ruc string) (*entity.Enterprise, error) {
	if r.enterprise != nil && r.enterprise.RUC == ruc {
		return r.enterprise, nil
	}
	return nil, nil
}

type memBranchRepo struct {
	point      *entity.EmissionPoint
	branch     *entity.Branch
	enterprise *entity.Enterprise
}

func (r *memBranchRepo) GetByID(_ context.Context, id string) (*entity.Branch, error) {
	if r.branch != nil && r.branch.ID == id {
		return r.branch, nil
	}
	return nil, nil
}

func (r *memBranchRepo) GetEmissionPoint(_ context.Context, id string) (*entity.EmissionPoint, error) {
	if r.point != nil && r.point.ID == id {
		return r.point, nil
	}
	return nil, nil
}

func (r *memBranchRepo) GetEmissionContext(_ context.Context, emissionPointID string) (*entity.EmissionPoint, *entity.Branch, *entity.Enterprise, error) {
	if r.point != nil && r.point.ID == emissionPointID {
		return r.point, r.branch, r.enterprise, nil
	}
	return nil, nil, nil, nil
}

type memClientRepo struct {
	clients map[string]*entity.Client
}

func (r *memClientRepo) Create(_ context.Context, c *entity.Client) error {
	r.clients[c.ID] = c
	return nil
}

func (r *memClientRepo) GetByID(_ context.Context, id string) (*entity.Client, error) {
	return r.clients[id], nil
}

func (r *memClientRepo) GetByDni(_ context.Context, dni string) (*entity.Client, error) {
	for _, c := range r.clients {
		if c.Dni == dni {
			return c, nil
		}
	}
	return nil, nil
}

type stockAdjust struct {
	articleID string
	delta     decimal.Decimal
}

type memArticleRepo struct {
	articles map[string]*entity.Article
	tariffs  map[string]*entity.Tariff
	adjusts  []stockAdjust
}

func (r *memArticleRepo) GetByID(_ context.Context, id string) (*entity.Article, error) {
	return r.articles[id], nil
}

func (r *memArticleRepo) GetTariff(_ context.Context, id string) (*entity.Tariff, error) {
	return r.tariffs[id], nil
}

func (r *memArticleRepo) AdjustStock(_ context.Context, articleID string, delta decimal.Decimal) error {
	r.adjusts = append(r.adjusts, stockAdjust{articleID: articleID, delta: delta})
	if art, ok := r.articles[articleID]; ok {
		art.Stock = art.Stock.Add(delta)
	}
	return nil
}

type memSequenceRepo struct {
	sequences []*entity.Sequence
	docTypes  map[string]string // docTypeID -> code
}

func (r *memSequenceRepo) GetByID(_ context.Context, id string) (*entity.Sequence, error) {
	for _, s := range r.sequences {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSequenceRepo) GetByEmissionPointAndDocType(_ context.Context, emissionPointID, docTypeCode string) (*entity.Sequence, error) {
	for _, s := range r.sequences {
		if s.EmissionPointID == emissionPointID && r.docTypes[s.DocumentTypeID] == docTypeCode {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSequenceRepo) ListByEmissionPoint(_ context.Context, emissionPointID string) ([]*entity.Sequence, error) {
	var out []*entity.Sequence
	for _, s := range r.sequences {
		if s.EmissionPointID == emissionPointID {
			out = append(out, s)
		}
	}
	return out, nil
}

// ── TxRunner, firma y SRI ─────────────────────────────────────────────────────

type fakeTxRunner struct {
	invoiceRepo    repository.InvoiceRepository
	creditNoteRepo repository.CreditNoteRepository
	sequenceRepo   repository.SequenceRepository
	articleRepo    repository.ArticleRepository

	// before corre justo antes del callback: simula trabajo de otra petición
	// que ya quedó confirmado cuando esta transacción toma sus bloqueos.
	before func()
}

func (t *fakeTxRunner) RunBilling(ctx context.Context, fn func(
	repository.InvoiceRepository,
	repository.CreditNoteRepository,
	repository.SequenceRepository,
	repository.ArticleRepository,
) error) error {
	if t.before != nil {
		t.before()
	}
	return fn(t.invoiceRepo, t.creditNoteRepo, t.sequenceRepo, t.articleRepo)
}

type fakeSigner struct {
	calls int
	err   error
}

func (s *fakeSigner) Sign(xmlBytes []byte, _ tls.Certificate) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append(xmlBytes, []byte("<!--firmado-->")...), nil
}

type fakeCredentialStore struct {
	err error
}

func (s *fakeCredentialStore) Load(_ context.Context, _ *entity.Enterprise) (tls.Certificate, error) {
	return tls.Certificate{}, s.err
}

type fakeSRIClient struct {
	reception    *infrasri.ReceptionResult
	receptionErr error

	authorization    *infrasri.AuthorizationResult
	authorizationErr error

	validateCalls  int
	authorizeCalls int
	lastSignedXML  []byte
	lastAccessKey  string
}

func (c *fakeSRIClient) ValidateDocument(_ context.Context, signedXML []byte) (*infrasri.ReceptionResult, error) {
	c.validateCalls++
	c.lastSignedXML = signedXML
	if c.receptionErr != nil {
		return nil, c.receptionErr
	}
	return c.reception, nil
}

func (c *fakeSRIClient) AuthorizeDocument(_ context.Context, accessKey string) (*infrasri.AuthorizationResult, error) {
	c.authorizeCalls++
	c.lastAccessKey = accessKey
	if c.authorizationErr != nil {
		return nil, c.authorizationErr
	}
	return c.authorization, nil
}

// ── Fixtures compartidos ──────────────────────────────────────────────────────

func fixtureEnterprise() *entity.Enterprise {
	return &entity.Enterprise{
		ID:                  "emp-1",
		RUC:                 "1790012345001",
		CompanyName:         "COMERCIAL ANDINA S.A.",
		CommercialName:      "Comercial Andina",
		MatrixAddress:       "Av. Amazonas N34-451",
		ObligatedAccounting: "Y",
		Environment:         "1",
		ElectronicSignature: "andina.p12",
	}
}

func fixtureClient() *entity.Client {
	return &entity.Client{
		ID:          "cli-1",
		Dni:         "1713175071",
		RazonSocial: "JUAN PEREZ",
		Address:     "Quito",
		Email:       "juan@example.com",
	}
}

func fixtureAuthorizedInvoice() (*entity.Invoice, []*entity.InvoiceDetail) {
	fifteen := decimal.NewFromInt(15)
	inv := &entity.Invoice{
		ID:              "inv-1",
		EnterpriseID:    "emp-1",
		EmissionPointID: "pe-1",
		SequenceID:      "seq-01",
		ClientID:        "cli-1",
		Estab:           "001",
		PtoEmi:          "001",
		Sequential:      "000000001",
		AccessKey:       "0101202401179001234500110010010000000010000000010",
		EmissionDate:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),

		TotalWithoutTaxes: decimal.NewFromInt(20),
		TotalDiscount:     decimal.Zero,
		TotalIVA:          decimal.NewFromInt(3),
		TotalICE:          decimal.Zero,
		TotalAmount:       decimal.NewFromInt(23),

		ElectronicStatus: entity.StatusAutorizado,
	}
	details := []*entity.InvoiceDetail{
		{
			ID:            "det-1",
			InvoiceID:     "inv-1",
			ArticleID:     "art-1",
			Description:   "Teclado inalámbrico",
			Amount:        decimal.NewFromInt(2),
			UnitValue:     decimal.NewFromInt(10),
			Discount:      decimal.Zero,
			Neto:          decimal.NewFromInt(20),
			IvaPercentage: fifteen,
			IvaValue:      decimal.NewFromInt(3),
			Subtotal:      decimal.NewFromInt(20),
			Total:         decimal.NewFromInt(23),
		},
	}
	return inv, details
}

func fixtureArticles() (map[string]*entity.Article, map[string]*entity.Tariff) {
	articles := map[string]*entity.Article{
		"art-1": {
			ID:           "art-1",
			Code:         "TEC-001",
			InternalCode: "TEC-001-INT",
			Description:  "Teclado inalámbrico",
			Price:        decimal.NewFromInt(10),
			Stock:        decimal.NewFromInt(100),
			ProductType:  entity.ProductTypeBien,
			PriceIVAFlag: entity.PriceIVAExcluded,
			IvaTariffID:  "iva-15",
		},
	}
	tariffs := map[string]*entity.Tariff{
		"iva-15": {ID: "iva-15", Name: "IVA 15%", Percentage: decimal.NewFromInt(15)},
		"iva-0":  {ID: "iva-0", Name: "IVA 0%", Percentage: decimal.Zero},
	}
	return articles, tariffs
}
