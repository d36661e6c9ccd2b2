// Package analytics contiene los casos de uso de agregación sobre el conjunto visible
// de deals y leads: porcentajes por etapa/estado, forecast mensual y pipeline.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/ports"
	"github.com/jhoicas/crm-api/internal/application/usecase"
	"github.com/jhoicas/crm-api/internal/domain/access"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

// ForecastUseCase reduce el conjunto visible del principal. Todas las lecturas pasan por access.Visible.
type ForecastUseCase struct {
	deals  repository.DealRepository
	leads  repository.LeadRepository
	report ports.ForecastReportGenerator
}

// NewForecastUseCase construye el caso de uso. report puede ser nil si no se expone el PDF.
func NewForecastUseCase(deals repository.DealRepository, leads repository.LeadRepository, report ports.ForecastReportGenerator) *ForecastUseCase {
	return &ForecastUseCase{deals: deals, leads: leads, report: report}
}

// DealStagePercentages porcentaje de deals visibles por etapa, en el orden del enum.
// Conjunto vacío → slice vacío. Cada porcentaje se redondea por separado (half-up):
// la suma puede no ser exactamente 100.
func (uc *ForecastUseCase) DealStagePercentages(ctx context.Context, p entity.Principal) ([]dto.StagePercentageDTO, error) {
	counts, err := access.Visible(ctx, p, uc.deals.CountByStage)
	if err != nil {
		return nil, fmt.Errorf("analytics: conteo por etapa: %w", err)
	}
	byStage := make(map[entity.DealStage]int, len(counts))
	total := 0
	for _, c := range counts {
		byStage[c.Stage] += c.Count
		total += c.Count
	}

	out := make([]dto.StagePercentageDTO, 0, len(byStage))
	if total == 0 {
		return out, nil
	}
	for _, stage := range entity.DealStages {
		n, ok := byStage[stage]
		if !ok || n == 0 {
			continue
		}
		out = append(out, dto.StagePercentageDTO{Stage: string(stage), Count: n, Percentage: percentage(n, total)})
	}
	return out, nil
}

// LeadStatusPercentages igual que DealStagePercentages pero sobre leads por estado.
func (uc *ForecastUseCase) LeadStatusPercentages(ctx context.Context, p entity.Principal) ([]dto.StatusPercentageDTO, error) {
	counts, err := access.Visible(ctx, p, uc.leads.CountByStatus)
	if err != nil {
		return nil, fmt.Errorf("analytics: conteo por estado: %w", err)
	}
	byStatus := make(map[entity.LeadStatus]int, len(counts))
	total := 0
	for _, c := range counts {
		byStatus[c.Status] += c.Count
		total += c.Count
	}

	out := make([]dto.StatusPercentageDTO, 0, len(byStatus))
	if total == 0 {
		return out, nil
	}
	for _, status := range entity.LeadStatuses {
		n, ok := byStatus[status]
		if !ok || n == 0 {
			continue
		}
		out = append(out, dto.StatusPercentageDTO{Status: string(status), Count: n, Percentage: percentage(n, total)})
	}
	return out, nil
}

// MonthlyForecast suma de forecast_value por mes calendario de expected_close_date.
// Deals sin fecha quedan fuera. Orden: fecha más temprana de cada mes, ascendente.
func (uc *ForecastUseCase) MonthlyForecast(ctx context.Context, p entity.Principal) ([]dto.MonthlyForecastDTO, error) {
	rows, err := access.Visible(ctx, p, uc.deals.MonthlyForecast)
	if err != nil {
		return nil, fmt.Errorf("analytics: forecast mensual: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FirstCloseDate.Before(rows[j].FirstCloseDate)
	})
	out := make([]dto.MonthlyForecastDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.MonthlyForecastDTO{
			Month:              r.Month.Format("2006-01"),
			Label:              monthLabel(r.Month),
			TotalForecastValue: r.TotalForecastValue,
		})
	}
	return out, nil
}

// Pipeline reparte los deals visibles en los cuatro grupos fijos más OTHER.
// Dentro de cada grupo se conserva el orden de creación ascendente del repositorio.
func (uc *ForecastUseCase) Pipeline(ctx context.Context, p entity.Principal) (*dto.PipelineDTO, error) {
	deals, err := access.Visible(ctx, p, func(ctx context.Context, scope access.Scope) ([]*entity.Deal, error) {
		return uc.deals.List(ctx, scope, repository.DealSearch{})
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: pipeline: %w", err)
	}
	out := &dto.PipelineDTO{
		Negotiation:  []dto.DealResponse{},
		ProposalSent: []dto.DealResponse{},
		ClosedWon:    []dto.DealResponse{},
		ClosedLost:   []dto.DealResponse{},
		Other:        []dto.DealResponse{},
	}
	for _, d := range deals {
		r := *usecase.DealToResponse(d)
		switch d.Stage {
		case entity.DealStageNegotiation:
			out.Negotiation = append(out.Negotiation, r)
		case entity.DealStageProposalSent:
			out.ProposalSent = append(out.ProposalSent, r)
		case entity.DealStageClosedWon:
			out.ClosedWon = append(out.ClosedWon, r)
		case entity.DealStageClosedLost:
			out.ClosedLost = append(out.ClosedLost, r)
		default:
			out.Other = append(out.Other, r)
		}
	}
	return out, nil
}

// ForecastReport genera el PDF con los tres resúmenes. Las tres consultas corren en paralelo.
func (uc *ForecastUseCase) ForecastReport(ctx context.Context, p entity.Principal) ([]byte, error) {
	if uc.report == nil {
		return nil, fmt.Errorf("analytics: generador de reportes no configurado")
	}

	// ── Goroutines para paralelizar las 3 consultas DB ────────────────────────
	type stagesResult struct {
		rows []dto.StagePercentageDTO
		err  error
	}
	type monthlyResult struct {
		rows []dto.MonthlyForecastDTO
		err  error
	}
	type pipelineResult struct {
		pipeline *dto.PipelineDTO
		err      error
	}

	stagesCh := make(chan stagesResult, 1)
	monthlyCh := make(chan monthlyResult, 1)
	pipelineCh := make(chan pipelineResult, 1)

	go func() {
		rows, err := uc.DealStagePercentages(ctx, p)
		stagesCh <- stagesResult{rows, err}
	}()
	go func() {
		rows, err := uc.MonthlyForecast(ctx, p)
		monthlyCh <- monthlyResult{rows, err}
	}()
	go func() {
		pl, err := uc.Pipeline(ctx, p)
		pipelineCh <- pipelineResult{pl, err}
	}()

	stages := <-stagesCh
	monthly := <-monthlyCh
	pipeline := <-pipelineCh

	if stages.err != nil {
		return nil, stages.err
	}
	if monthly.err != nil {
		return nil, monthly.err
	}
	if pipeline.err != nil {
		return nil, pipeline.err
	}

	doc, err := uc.report.GenerateForecastReport(ctx, dto.ForecastReportDTO{
		GeneratedAt:      time.Now().UTC(),
		RequestedBy:      string(p.Role),
		StagePercentages: stages.rows,
		Monthly:          monthly.rows,
		Pipeline:         *pipeline.pipeline,
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: reporte forecast: %w", err)
	}
	return doc, nil
}

var hundred = decimal.NewFromInt(100)

// percentage round(count/total×100), half-up.
func percentage(count, total int) int {
	return int(decimal.NewFromInt(int64(count)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(0).
		IntPart())
}

// monthLabel etiqueta legible del mes, ej: "March 2026".
func monthLabel(t time.Time) string {
	return t.Format("January 2006")
}
