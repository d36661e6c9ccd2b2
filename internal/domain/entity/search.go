package entity

import (
	"strings"

	"golang.org/x/text/cases"
)

// containsFold substring sin distinguir mayúsculas (case folding Unicode).
// Un Caser guarda estado: se crea uno por llamada.
func containsFold(s, term string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(term))
}

// MatchingLeadStatuses estados cuyo nombre contiene term. Term vacío → nil.
func MatchingLeadStatuses(term string) []LeadStatus {
	if term == "" {
		return nil
	}
	var out []LeadStatus
	for _, s := range LeadStatuses {
		if containsFold(string(s), term) {
			out = append(out, s)
		}
	}
	return out
}

// MatchingDealStages etapas cuyo nombre contiene term. Term vacío → nil.
func MatchingDealStages(term string) []DealStage {
	if term == "" {
		return nil
	}
	var out []DealStage
	for _, s := range DealStages {
		if containsFold(string(s), term) {
			out = append(out, s)
		}
	}
	return out
}
