package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/vaccine-tracker/constants"
)

// RawDocument is an uploaded certificate as handed over by the upload collaborator.
type RawDocument struct {
	Data        []byte
	ContentType string // constants.ContentTypePDF | ContentTypeJPEG | ContentTypePNG
}

// VaccineDraft is the unvalidated output of field extraction. Any field may be empty.
type VaccineDraft struct {
	Name        string     `json:"name"`
	Date        *time.Time `json:"date,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	BatchNumber string     `json:"batch_number,omitempty"`
}

// VaccineRecord is a validated, persistable vaccine record.
type VaccineRecord struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Date        time.Time  `json:"date"`
	Provider    *string    `json:"provider,omitempty"`
	BatchNumber *string    `json:"batch_number,omitempty"`
	NextDueDate *time.Time `json:"next_due_date,omitempty"`
	SourceRef   *string    `json:"source_ref,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// VaccineView pairs a record with its status as classified at read time.
type VaccineView struct {
	Record *VaccineRecord          `json:"record"`
	Status constants.VaccineStatus `json:"status"`
}

// Recommendation is a single due/overdue finding from the schedule. Never persisted.
type Recommendation struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	DueDate     time.Time            `json:"due_date"`
	Importance  constants.Importance `json:"importance"`
}
