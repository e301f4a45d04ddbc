package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcisneros/facturacion-sri/internal/application/billing"
	"github.com/jcisneros/facturacion-sri/internal/application/dto"
)

// SequenceHandler consulta las secuencias de numeración de un punto de emisión.
type SequenceHandler struct {
	queries *billing.BillingQueries
}

// NewSequenceHandler construye el handler.
func NewSequenceHandler(queries *billing.BillingQueries) *SequenceHandler {
	return &SequenceHandler{queries: queries}
}

// List godoc
// @Summary      Listar secuencias de un punto de emisión
// @Tags         secuencias
// @Produce      json
// @Param        emission_point_id  query     string  true  "ID del punto de emisión"
// @Success      200  {array}   dto.SequenceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/v1/secuencias [get]
func (h *SequenceHandler) List(c *fiber.Ctx) error {
	emissionPointID := c.Query("emission_point_id")
	if emissionPointID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "emission_point_id requerido"})
	}
	sequences, err := h.queries.ListSequences(c.Context(), emissionPointID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(sequences)
}
