package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/crm-api/internal/application/analytics"
)

// AnalyticsHandler maneja los endpoints de agregación sobre deals y leads.
type AnalyticsHandler struct {
	uc *analytics.ForecastUseCase
}

// NewAnalyticsHandler construye el handler.
func NewAnalyticsHandler(uc *analytics.ForecastUseCase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

// DealStagePercentages godoc
// @Summary      Porcentaje de deals por etapa
// @Description  Cada porcentaje se redondea por separado; la suma puede no ser exactamente 100.
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.StagePercentageDTO
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/deals/stage-percentages [get]
func (h *AnalyticsHandler) DealStagePercentages(c *fiber.Ctx) error {
	out, err := h.uc.DealStagePercentages(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LeadStatusPercentages godoc
// @Summary      Porcentaje de leads por estado
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.StatusPercentageDTO
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/leads/status-percentages [get]
func (h *AnalyticsHandler) LeadStatusPercentages(c *fiber.Ctx) error {
	out, err := h.uc.LeadStatusPercentages(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// MonthlyForecast godoc
// @Summary      Forecast mensual
// @Description  Suma de forecast_value por mes de expected_close_date. Deals sin fecha se excluyen.
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.MonthlyForecastDTO
// @Router       /api/deals/forecast/monthly [get]
func (h *AnalyticsHandler) MonthlyForecast(c *fiber.Ctx) error {
	out, err := h.uc.MonthlyForecast(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Pipeline godoc
// @Summary      Pipeline de deals por etapa
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.PipelineDTO
// @Router       /api/deals/pipeline [get]
func (h *AnalyticsHandler) Pipeline(c *fiber.Ctx) error {
	out, err := h.uc.Pipeline(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ForecastReport godoc
// @Summary      Reporte PDF de forecast
// @Tags         analytics
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}    binary
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/deals/forecast/report [get]
func (h *AnalyticsHandler) ForecastReport(c *fiber.Ctx) error {
	doc, err := h.uc.ForecastReport(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="forecast-%s.pdf"`, time.Now().UTC().Format("20060102")))
	return c.Send(doc)
}
