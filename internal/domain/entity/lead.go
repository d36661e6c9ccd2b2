package entity

import "time"

// LeadStatus estado de calificación de un lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "NEW"
	LeadStatusContacted LeadStatus = "CONTACTED"
	LeadStatusQualified LeadStatus = "QUALIFIED"
	LeadStatusProposal  LeadStatus = "PROPOSAL"
	LeadStatusWon       LeadStatus = "WON"
	LeadStatusLost      LeadStatus = "LOST"
)

// LeadStatuses orden canónico de los estados (reportes y búsqueda).
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusProposal,
	LeadStatusWon,
	LeadStatusLost,
}

// Valid indica si el estado pertenece al enum.
func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Lead representa un prospecto comercial. Pertenece a exactamente un usuario (OwnerID).
type Lead struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Company   string
	Status    LeadStatus
	OwnerID   int64
	Owner     *Owner // solo en lecturas (JOIN users)
	CreatedAt time.Time
	UpdatedAt time.Time
}
