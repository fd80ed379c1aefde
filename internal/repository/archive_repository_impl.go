package repository

import (
	"context"

	"clinic-backoffice/internal/domain/entity"
	domainRepo "clinic-backoffice/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type archiveRepository struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) domainRepo.ArchiveRepository {
	return &archiveRepository{db: db}
}

var archiveConflictColumns = []clause.Column{
	{Name: "clinic_id"}, {Name: "kind"}, {Name: "date"},
}

func (r *archiveRepository) Upsert(ctx context.Context, record *entity.ArchiveRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: archiveConflictColumns,
		DoUpdates: clause.AssignmentColumns([]string{
			"capacity_total", "capacity_served", "capacity_cancelled", "entries", "updated_at",
		}),
	}).Create(record).Error
}

func (r *archiveRepository) SaveIfAbsent(ctx context.Context, record *entity.ArchiveRecord) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   archiveConflictColumns,
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *archiveRepository) FindByClinic(ctx context.Context, clinicID uint, kind entity.QueueKind, filter domainRepo.ArchiveFilter) ([]entity.ArchiveRecord, error) {
	query := r.db.WithContext(ctx).
		Where("clinic_id = ? AND kind = ?", clinicID, kind).
		Order("date DESC")
	if filter.FromDate != "" {
		query = query.Where("date >= ?", filter.FromDate)
	}
	if filter.ToDate != "" {
		query = query.Where("date <= ?", filter.ToDate)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []entity.ArchiveRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
