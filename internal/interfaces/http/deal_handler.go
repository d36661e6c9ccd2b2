package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/usecase"
)

// DealHandler maneja las peticiones HTTP para deals (protegido).
type DealHandler struct {
	uc *usecase.DealUseCase
}

// NewDealHandler construye el handler.
func NewDealHandler(uc *usecase.DealUseCase) *DealHandler {
	return &DealHandler{uc: uc}
}

// Create godoc
// @Summary      Crear deal
// @Description  La probabilidad se deriva de la etapa (PROPOSAL_SENT=30, NEGOTIATION=50, CLOSED_WON=100, CLOSED_LOST=0).
// @Tags         deals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDealRequest  true  "Datos del deal"
// @Success      201   {object}  dto.DealResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/deals [post]
func (h *DealHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDealRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), GetPrincipal(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar deals visibles
// @Tags         deals
// @Security     Bearer
// @Produce      json
// @Param        search  query     string  false  "Nombre o etapa"
// @Success      200     {object}  dto.DealListResponse
// @Router       /api/deals [get]
func (h *DealHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), GetPrincipal(c), c.Query("search"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener deal por ID
// @Tags         deals
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "Deal ID"
// @Success      200  {object}  dto.DealResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/deals/{id} [get]
func (h *DealHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar deal
// @Tags         deals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "Deal ID"
// @Param        body  body  dto.UpdateDealRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.DealResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/deals/{id} [patch]
func (h *DealHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateDealRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Update(c.UserContext(), GetPrincipal(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar deal
// @Tags         deals
// @Security     Bearer
// @Param        id   path  string  true  "Deal ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/deals/{id} [delete]
func (h *DealHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Remove(c.UserContext(), GetPrincipal(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
