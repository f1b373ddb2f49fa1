package storage

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"costlens/internal/models"
	"costlens/pkg/dataset"
)

// CreateImport inserts imp and its tuples in one transaction. The tuples'
// FileID is replaced with the new import id.
func (s *Store) CreateImport(ctx context.Context, imp *models.FileImport, tuples []dataset.CostTuple) error {
	if imp.ImportedAt.IsZero() {
		imp.ImportedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(imp).Error; err != nil {
			return err
		}
		if len(tuples) == 0 {
			return nil
		}
		rows := lo.Map(tuples, func(t dataset.CostTuple, _ int) models.CostRow {
			return models.CostRow{
				FileImportID: imp.ID,
				UsageDate:    t.UsageDate,
				ServiceName:  t.ServiceName,
				CostAmount:   t.CostAmount,
			}
		})
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

// FindImportByChecksum returns the import with checksum, or a NotFoundError
func (s *Store) FindImportByChecksum(ctx context.Context, checksum string) (*models.FileImport, error) {
	var imp models.FileImport
	err := s.db.WithContext(ctx).Where("checksum = ?", checksum).First(&imp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "file import", Key: checksum}
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// GetImport loads one import by id
func (s *Store) GetImport(ctx context.Context, id uint) (*models.FileImport, error) {
	var imp models.FileImport
	err := s.db.WithContext(ctx).First(&imp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "file import", Key: id}
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// ListImports returns every import, newest first
func (s *Store) ListImports(ctx context.Context) ([]models.FileImport, error) {
	var out []models.FileImport
	if err := s.db.WithContext(ctx).Order("imported_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTuples returns the cost tuples of one import ordered by date
func (s *Store) LoadTuples(ctx context.Context, fileID uint) ([]dataset.CostTuple, error) {
	var rows []models.CostRow
	err := s.db.WithContext(ctx).
		Where("file_import_id = ?", fileID).
		Order("usage_date").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r models.CostRow, _ int) dataset.CostTuple {
		return dataset.CostTuple{
			FileID:      r.FileImportID,
			UsageDate:   r.UsageDate,
			ServiceName: r.ServiceName,
			CostAmount:  r.CostAmount,
		}
	}), nil
}

// DeleteImport removes an import and its rows
func (s *Store) DeleteImport(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_import_id = ?", id).Delete(&models.CostRow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.FileImport{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "file import", Key: id}
		}
		return nil
	})
}
