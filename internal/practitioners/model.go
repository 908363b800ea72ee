package practitioners

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("practitioners: not found")

// Practitioner is a bookable provider in the marketplace directory.
type Practitioner struct {
	ID                   uuid.UUID
	Name                 string
	Specialty            string
	ConsultationFeeCents int64
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
