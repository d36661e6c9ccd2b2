package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StagePercentageDTO porcentaje de deals visibles en una etapa (redondeado por etapa).
type StagePercentageDTO struct {
	Stage      string `json:"stage"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// StatusPercentageDTO porcentaje de leads visibles en un estado.
type StatusPercentageDTO struct {
	Status     string `json:"status"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// MonthlyForecastDTO forecast agregado de un mes calendario.
type MonthlyForecastDTO struct {
	Month              string          `json:"month"` // "2026-03"
	Label              string          `json:"label"` // "March 2026"
	TotalForecastValue decimal.Decimal `json:"total_forecast_value"`
}

// PipelineDTO deals agrupados por etapa, cada grupo ordenado por creación ascendente.
// Other recoge PROSPECT y cualquier etapa fuera de los cuatro grupos fijos.
type PipelineDTO struct {
	Negotiation  []DealResponse `json:"NEGOTIATION"`
	ProposalSent []DealResponse `json:"PROPOSAL_SENT"`
	ClosedWon    []DealResponse `json:"CLOSED_WON"`
	ClosedLost   []DealResponse `json:"CLOSED_LOST"`
	Other        []DealResponse `json:"OTHER"`
}

// Total número de deals en todos los grupos.
func (p *PipelineDTO) Total() int {
	return len(p.Negotiation) + len(p.ProposalSent) + len(p.ClosedWon) + len(p.ClosedLost) + len(p.Other)
}

// ForecastReportDTO datos del reporte PDF de forecast.
type ForecastReportDTO struct {
	GeneratedAt      time.Time
	RequestedBy      string
	StagePercentages []StagePercentageDTO
	Monthly          []MonthlyForecastDTO
	Pipeline         PipelineDTO
}
