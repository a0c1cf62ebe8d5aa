package models

import (
	"time"

	"github.com/google/uuid"
)

// Gig описывает размещённое задание.
// Статус гига меняет только GigService: остальные сервисы читают его,
// но переходы выполняют через репозиторий гигов.
type Gig struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PosterID        uuid.UUID  `db:"poster_id" json:"poster_id"`
	WorkerID        *uuid.UUID `db:"worker_id" json:"worker_id,omitempty"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	Budget          float64    `db:"budget" json:"budget"`
	Status          GigStatus  `db:"status" json:"status"`
	OwnerConfirmed  bool       `db:"owner_confirmed" json:"owner_confirmed"`
	WorkerConfirmed bool       `db:"worker_confirmed" json:"worker_confirmed"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	ApplicationsCount *int `db:"applications_count" json:"applications_count,omitempty"`
}

// IsOwnedBy проверяет, что гиг принадлежит пользователю.
func (g *Gig) IsOwnedBy(userID uuid.UUID) bool {
	return g.PosterID == userID
}

// IsWorker проверяет, что пользователь — принятый исполнитель гига.
func (g *Gig) IsWorker(userID uuid.UUID) bool {
	return g.WorkerID != nil && *g.WorkerID == userID
}

// BothConfirmed: обе стороны подтвердили выполнение работы.
func (g *Gig) BothConfirmed() bool {
	return g.OwnerConfirmed && g.WorkerConfirmed
}

// Application представляет заявку исполнителя на гиг.
type Application struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	GigID       uuid.UUID         `db:"gig_id" json:"gig_id"`
	ApplicantID uuid.UUID         `db:"applicant_id" json:"applicant_id"`
	CoverLetter string            `db:"cover_letter" json:"cover_letter"`
	Status      ApplicationStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// IsOwnedBy проверяет, что заявку подал этот пользователь.
func (a *Application) IsOwnedBy(userID uuid.UUID) bool {
	return a.ApplicantID == userID
}
