package repository

import (
	"context"

	"clinic-backoffice/internal/domain/entity"
)

type ArchiveFilter struct {
	FromDate string
	ToDate   string
	Limit    int
}

type ArchiveRepository interface {
	// Upsert overwrites any existing record for the same (clinic, kind, date).
	Upsert(ctx context.Context, record *entity.ArchiveRecord) error
	// SaveIfAbsent keeps an existing record untouched; returns false when the
	// record already existed.
	SaveIfAbsent(ctx context.Context, record *entity.ArchiveRecord) (bool, error)
	FindByClinic(ctx context.Context, clinicID uint, kind entity.QueueKind, filter ArchiveFilter) ([]entity.ArchiveRecord, error)
}
