package repository

import (
	"context"
	"time"
)

// QuarantineLead is a roster entry that has not yet entered the funnel.
// Entries are deduplicated by normalized phone.
type QuarantineLead struct {
	ID               int64      `db:"id"`
	ProfessionalCode *string    `db:"professional_code"`
	Name             *string    `db:"name"`
	Phone            string     `db:"phone"`
	PhoneNormalized  string     `db:"phone_normalized"`
	Region           *string    `db:"region"`
	RegisteredAt     *time.Time `db:"registered_at"`
	UploadedBy       *int64     `db:"uploaded_by"`
	CreatedAt        time.Time  `db:"created_at"`
}

// UpsertParams contains parameters for inserting a quarantine entry.
type UpsertParams struct {
	ProfessionalCode *string
	Name             *string
	Phone            string
	PhoneNormalized  string
	Region           *string
	RegisteredAt     *time.Time
	UploadedBy       *int64
}

// Repository provides quarantine persistence operations.
type Repository interface {
	ListAll(ctx context.Context) ([]QuarantineLead, error)
	Upsert(ctx context.Context, params UpsertParams) (bool, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
	DeleteOne(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int, error)
}
