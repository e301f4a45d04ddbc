package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcisneros/facturacion-sri/internal/application/auth"
	"github.com/jcisneros/facturacion-sri/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CreateInvoice    *billing.CreateInvoiceUseCase
	CreateCreditNote *billing.CreateCreditNoteUseCase
	Orchestrator     *billing.SRIOrchestrator
	Queries          *billing.BillingQueries
	AuthUC           *auth.AuthUseCase
	JWTSecret        string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api/v1")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Facturas
	invoices := protected.Group("/facturas")
	invoiceHandler := NewInvoiceHandler(deps.CreateInvoice, deps.Queries)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)

	// Notas de crédito
	creditNotes := protected.Group("/notas-credito")
	creditNoteHandler := NewCreditNoteHandler(deps.CreateCreditNote, deps.Queries)
	creditNotes.Post("/", creditNoteHandler.Create)
	creditNotes.Get("/:id", creditNoteHandler.GetByID)

	// Comprobantes: reenvío y autorización
	comprobantes := protected.Group("/comprobantes")
	comprobanteHandler := NewComprobanteHandler(deps.Orchestrator)
	comprobantes.Post("/:id/reenviar", comprobanteHandler.Resubmit)
	comprobantes.Get("/:claveAcceso/autorizacion", comprobanteHandler.CheckAuthorization)

	// Secuencias de numeración
	sequences := protected.Group("/secuencias")
	sequenceHandler := NewSequenceHandler(deps.Queries)
	sequences.Get("/", sequenceHandler.List)
}
