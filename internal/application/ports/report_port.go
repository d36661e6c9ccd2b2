package ports

import (
	"context"

	"github.com/jhoicas/crm-api/internal/application/dto"
)

// ForecastReportGenerator puerto de salida para renderizar el reporte de forecast.
// El adaptador (Maroto) devuelve los bytes del documento listo para descargar.
type ForecastReportGenerator interface {
	GenerateForecastReport(ctx context.Context, report dto.ForecastReportDTO) ([]byte, error)
}
