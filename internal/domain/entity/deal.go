package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DealStage etapa del pipeline comercial.
type DealStage string

const (
	DealStageProspect     DealStage = "PROSPECT"
	DealStageProposalSent DealStage = "PROPOSAL_SENT"
	DealStageNegotiation  DealStage = "NEGOTIATION"
	DealStageClosedWon    DealStage = "CLOSED_WON"
	DealStageClosedLost   DealStage = "CLOSED_LOST"
)

// DealStages orden canónico de las etapas.
var DealStages = []DealStage{
	DealStageProspect,
	DealStageProposalSent,
	DealStageNegotiation,
	DealStageClosedWon,
	DealStageClosedLost,
}

// Valid indica si la etapa pertenece al enum.
func (s DealStage) Valid() bool {
	for _, v := range DealStages {
		if v == s {
			return true
		}
	}
	return false
}

// StageProbability devuelve la probabilidad de cierre fija de una etapa.
// ok es false para etapas sin probabilidad fija (PROSPECT, vacía o desconocida).
func StageProbability(stage DealStage) (probability int, ok bool) {
	switch stage {
	case DealStageProposalSent:
		return 30, true
	case DealStageNegotiation:
		return 50, true
	case DealStageClosedWon:
		return 100, true
	case DealStageClosedLost:
		return 0, true
	default:
		return 0, false
	}
}

var hundred = decimal.NewFromInt(100)

// ForecastValue = dealValue × probability / 100, exacto.
func ForecastValue(dealValue decimal.Decimal, probability int) decimal.Decimal {
	return dealValue.Mul(decimal.NewFromInt(int64(probability))).Div(hundred)
}

// Deal representa una oportunidad de venta.
// Invariante: ForecastValue == DealValue × CloseProbability / 100 tras cada create/update.
type Deal struct {
	ID                string
	Name              string
	DealValue         decimal.Decimal
	ForecastValue     decimal.Decimal
	ExpectedCloseDate *time.Time // nil = sin fecha estimada
	CloseProbability  int        // 0..100
	Stage             DealStage
	OwnerID           int64
	Owner             *Owner // solo en lecturas (JOIN users)
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Recalculate recompone ForecastValue a partir de DealValue y CloseProbability.
func (d *Deal) Recalculate() {
	d.ForecastValue = ForecastValue(d.DealValue, d.CloseProbability)
}
