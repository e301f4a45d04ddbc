package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jcisneros/facturacion-sri/internal/application/auth"
	"github.com/jcisneros/facturacion-sri/internal/application/billing"
	"github.com/jcisneros/facturacion-sri/internal/infrastructure/credential"
	"github.com/jcisneros/facturacion-sri/internal/infrastructure/postgres"
	infrasri "github.com/jcisneros/facturacion-sri/internal/infrastructure/sri"
	"github.com/jcisneros/facturacion-sri/internal/infrastructure/sri/signer"
	httpRouter "github.com/jcisneros/facturacion-sri/internal/interfaces/http"
	"github.com/jcisneros/facturacion-sri/pkg/config"
	"github.com/jcisneros/facturacion-sri/pkg/logger"
	pkgsri "github.com/jcisneros/facturacion-sri/pkg/sri"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   "info",
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("ambiente_sri", cfg.SRI.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios sobre el pool (los de la transacción los crea el TxRunner).
	enterpriseRepo := postgres.NewEnterpriseRepository(pool)
	branchRepo := postgres.NewBranchRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	articleRepo := postgres.NewArticleRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	creditNoteRepo := postgres.NewCreditNoteRepository(pool)
	sequenceRepo := postgres.NewSequenceRepository(pool)
	docTypeRepo := postgres.NewDocumentTypeRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Ciclo electrónico: XML → firma XAdES-BES → SOAP SRI → estado.
	xmlBuilder := infrasri.NewXMLBuilderService()
	signerSvc := signer.NewXadesSignatureService()
	sriClient := infrasri.NewSOAPClient(cfg.SRI)
	credentialStore := credential.NewStore(cfg.SRI.CertDir, cfg.SRI.EncryptionKey)

	orchestrator := billing.NewSRIOrchestrator(
		invoiceRepo, creditNoteRepo, enterpriseRepo, clientRepo, articleRepo,
		xmlBuilder, signerSvc, sriClient, credentialStore,
		cfg.SRI.Environment, log,
	)

	keygen := pkgsri.NewAccessKeyGenerator(pkgsri.NewMathRandSource())
	createInvoiceUC := billing.NewCreateInvoiceUseCase(
		branchRepo, clientRepo, articleRepo, txRunner, keygen, orchestrator, log,
	)
	createCreditNoteUC := billing.NewCreateCreditNoteUseCase(
		invoiceRepo, enterpriseRepo, clientRepo, articleRepo,
		billing.NewCreditNoteReconciler(), txRunner, keygen, orchestrator, log,
	)
	queries := billing.NewBillingQueries(invoiceRepo, creditNoteRepo, sequenceRepo, docTypeRepo)

	authUC := auth.NewAuthUseCase(userRepo, enterpriseRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación SRI API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CreateInvoice:    createInvoiceUC,
		CreateCreditNote: createCreditNoteUC,
		Orchestrator:     orchestrator,
		Queries:          queries,
		AuthUC:           authUC,
		JWTSecret:        cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
