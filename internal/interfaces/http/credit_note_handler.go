package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jcisneros/facturacion-sri/internal/application/billing"
	"github.com/jcisneros/facturacion-sri/internal/application/dto"
	"github.com/jcisneros/facturacion-sri/internal/domain"
)

// CreditNoteHandler maneja la emisión y consulta de notas de crédito.
type CreditNoteHandler struct {
	createUC *billing.CreateCreditNoteUseCase
	queries  *billing.BillingQueries
}

// NewCreditNoteHandler construye el handler.
func NewCreditNoteHandler(createUC *billing.CreateCreditNoteUseCase, queries *billing.BillingQueries) *CreditNoteHandler {
	return &CreditNoteHandler{createUC: createUC, queries: queries}
}

// Create godoc
// @Summary      Emitir nota de crédito
// @Description  Emite una nota de crédito sobre una factura autorizada según el motivo: anulación total, anulación parcial o corrección de precios/descuentos.
// @Tags         notas-credito
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCreditNoteRequest  true  "factura, motivo y líneas"
// @Success      201   {object}  dto.CreditNoteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/notas-credito [post]
func (h *CreditNoteHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCreditNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	resp, err := h.createUC.Execute(c.Context(), &in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrFacturaNoAutorizada):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVOICE_NOT_AUTHORIZED", Message: err.Error()})
		case errors.Is(err, domain.ErrConsumidorFinal):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONSUMIDOR_FINAL", Message: err.Error()})
		case errors.Is(err, domain.ErrNotaCreditoDuplicada):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_CREDIT_NOTE", Message: err.Error()})
		case errors.Is(err, domain.ErrCantidadExcedida):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "AMOUNT_EXCEEDED", Message: err.Error()})
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetByID godoc
// @Summary      Consultar nota de crédito
// @Tags         notas-credito
// @Produce      json
// @Param        id   path      string  true  "ID de la nota de crédito"
// @Success      200  {object}  dto.CreditNoteResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/notas-credito/{id} [get]
func (h *CreditNoteHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	resp, err := h.queries.GetCreditNote(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "nota de crédito no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(resp)
}
