package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperflow/constants"
	"github.com/joseph-ayodele/paperflow/internal/extract"
)

// Document represents a document row for data transfer between layers.
// ExtractedJSON holds the canonical marshaled record (nil until a first
// successful commit); Extracted is its decoded form for convenience.
type Document struct {
	ID               uuid.UUID                `json:"id"`
	OwnerID          string                   `json:"owner_id"`
	OriginalFilename string                   `json:"original_filename"`
	StoredPath       string                   `json:"stored_path"`
	Status           constants.DocumentStatus `json:"status"`
	RawText          *string                  `json:"raw_text,omitempty"`
	ExtractedJSON    []byte                   `json:"-"`
	Extracted        *extract.Fields          `json:"extracted,omitempty"`
	NormalizedText   string                   `json:"normalized_search_text,omitempty"`
	OCRUsed          bool                     `json:"ocr_used"`
	ContactPhone     *string                  `json:"contact_phone,omitempty"`
	AgeYears         *int                     `json:"age_years,omitempty"`
	ExperienceYears  *int                     `json:"experience_years,omitempty"`
	ErrorMessage     string                   `json:"error_message,omitempty"`
	ProcessingLog    []ProcessingEvent        `json:"processing_log,omitempty"`
	UploadedAt       time.Time                `json:"uploaded_at"`
	ProcessedAt      *time.Time               `json:"processed_at,omitempty"`
}

// ProcessingEvent is one structured entry of a document's processing log.
type ProcessingEvent struct {
	Event   string    `json:"event"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}
