// Package pdf genera el reporte de forecast comercial con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + fecha de generación │ rol solicitante      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ETAPAS: Etapa | Deals | %                                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FORECAST MENSUAL: Mes | Forecast                            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PIPELINE: Grupo | Deals | Valor | Forecast                  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/ports"
)

var _ ports.ForecastReportGenerator = (*ForecastReportGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// ForecastReportGenerator implementa ports.ForecastReportGenerator usando Maroto v2.
type ForecastReportGenerator struct {
	appName string
}

// NewForecastReportGenerator construye el generador. appName aparece como autor del documento.
func NewForecastReportGenerator(appName string) *ForecastReportGenerator {
	return &ForecastReportGenerator{appName: appName}
}

// GenerateForecastReport genera el PDF y devuelve sus bytes.
func (g *ForecastReportGenerator) GenerateForecastReport(_ context.Context, report dto.ForecastReportDTO) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Forecast Report", true).
		WithAuthor(g.appName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(sectionTitle("DEALS POR ETAPA"))
	m.AddRows(tableHeader([]string{"Etapa", "Deals", "%"}, []int{6, 3, 3}))
	m.AddRows(stageRows(report.StagePercentages)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionTitle("FORECAST MENSUAL"))
	m.AddRows(tableHeader([]string{"Mes", "Forecast"}, []int{6, 6}))
	m.AddRows(monthlyRows(report.Monthly)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionTitle("PIPELINE"))
	m.AddRows(tableHeader([]string{"Grupo", "Deals", "Valor", "Forecast"}, []int{4, 2, 3, 3}))
	m.AddRows(pipelineRows(report.Pipeline)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(report dto.ForecastReportDTO) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New("Forecast Report", props.Text{
				Style: fontstyle.Bold, Size: 14, Color: colorPrimary, Top: 1,
			}),
			text.New("Generado: "+report.GeneratedAt.Format("2006-01-02 15:04 MST"), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("Rol: "+nonEmpty(report.RequestedBy, "-"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func sectionTitle(title string) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 2}),
	))
}

func tableHeader(labels []string, sizes []int) core.Row {
	cols := make([]core.Col, 0, len(labels))
	for i, l := range labels {
		a := align.Right
		if i == 0 {
			a = align.Left
		}
		cols = append(cols, col.New(sizes[i]).Add(text.New(l, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 1, Left: 1, Right: 1,
		})))
	}
	return row.New(6).Add(cols...)
}

func stageRows(stages []dto.StagePercentageDTO) []core.Row {
	if len(stages) == 0 {
		return []core.Row{emptyRow()}
	}
	rows := make([]core.Row, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, row.New(6).Add(
			cell(6, s.Stage, align.Left),
			cell(3, fmt.Sprintf("%d", s.Count), align.Right),
			cell(3, fmt.Sprintf("%d%%", s.Percentage), align.Right),
		))
	}
	return rows
}

func monthlyRows(months []dto.MonthlyForecastDTO) []core.Row {
	if len(months) == 0 {
		return []core.Row{emptyRow()}
	}
	rows := make([]core.Row, 0, len(months))
	for _, mth := range months {
		rows = append(rows, row.New(6).Add(
			cell(6, mth.Label, align.Left),
			cell(6, "$"+formatMoney(mth.TotalForecastValue), align.Right),
		))
	}
	return rows
}

func pipelineRows(p dto.PipelineDTO) []core.Row {
	groups := []struct {
		name  string
		deals []dto.DealResponse
	}{
		{"NEGOTIATION", p.Negotiation},
		{"PROPOSAL_SENT", p.ProposalSent},
		{"CLOSED_WON", p.ClosedWon},
		{"CLOSED_LOST", p.ClosedLost},
		{"OTHER", p.Other},
	}
	rows := make([]core.Row, 0, len(groups))
	for _, g := range groups {
		value, forecast := decimal.Zero, decimal.Zero
		for _, d := range g.deals {
			value = value.Add(d.DealValue)
			forecast = forecast.Add(d.ForecastValue)
		}
		rows = append(rows, row.New(6).Add(
			cell(4, g.name, align.Left),
			cell(2, fmt.Sprintf("%d", len(g.deals)), align.Right),
			cell(3, "$"+formatMoney(value), align.Right),
			cell(3, "$"+formatMoney(forecast), align.Right),
		))
	}
	return rows
}

func cell(size int, s string, a align.Type) core.Col {
	return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
}

func emptyRow() core.Row {
	return row.New(6).Add(col.New(12).Add(
		text.New("Sin datos", props.Text{Size: 8, Color: colorGray, Top: 1, Left: 1}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney dos decimales con separador de miles. Ej: 1234567.5 → "1,234,567.50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "." + frac
}
