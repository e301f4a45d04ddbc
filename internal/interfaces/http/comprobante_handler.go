package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jcisneros/facturacion-sri/internal/application/billing"
	"github.com/jcisneros/facturacion-sri/internal/application/dto"
	"github.com/jcisneros/facturacion-sri/internal/domain"
	pkgsri "github.com/jcisneros/facturacion-sri/pkg/sri"
)

// ComprobanteHandler opera sobre comprobantes ya emitidos: reenvío al SRI y
// consulta de autorización por clave de acceso.
type ComprobanteHandler struct {
	orchestrator *billing.SRIOrchestrator
}

// NewComprobanteHandler construye el handler.
func NewComprobanteHandler(orchestrator *billing.SRIOrchestrator) *ComprobanteHandler {
	return &ComprobanteHandler{orchestrator: orchestrator}
}

// Resubmit godoc
// @Summary      Reenviar comprobante al SRI
// @Description  Reintenta el envío de un comprobante en estado PENDIENTE, DEVUELTA o ERROR_HTTP.
// @Tags         comprobantes
// @Produce      json
// @Param        id   path      string  true  "ID de la factura o nota de crédito"
// @Success      200  {object}  dto.SubmissionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/v1/comprobantes/{id}/reenviar [post]
func (h *ComprobanteHandler) Resubmit(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	resp, err := h.orchestrator.Resubmit(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "comprobante no encontrado"})
		}
		if errors.Is(err, domain.ErrEstadoInvalido) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(resp)
}

// CheckAuthorization godoc
// @Summary      Consultar autorización por clave de acceso
// @Tags         comprobantes
// @Produce      json
// @Param        claveAcceso  path      string  true  "Clave de acceso de 49 dígitos"
// @Success      200  {object}  dto.AuthorizationStatusResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/comprobantes/{claveAcceso}/autorizacion [get]
func (h *ComprobanteHandler) CheckAuthorization(c *fiber.Ctx) error {
	accessKey := c.Params("claveAcceso")
	if err := pkgsri.Verify(accessKey); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ACCESS_KEY", Message: err.Error()})
	}
	resp, err := h.orchestrator.CheckAuthorization(c.Context(), accessKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "no existe comprobante con esa clave de acceso"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(resp)
}
