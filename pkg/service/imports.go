package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"costlens/internal/models"
	"costlens/pkg/dataset"
	"costlens/pkg/frame"
	"costlens/pkg/logger"
	"costlens/pkg/metrics"
	"costlens/pkg/normalize"
	"costlens/pkg/storage"
)

// ImportResult describes a persisted import
type ImportResult struct {
	Import   models.FileImport `json:"import"`
	Rows     int               `json:"rows"`
	Mirrored bool              `json:"mirrored"`
}

// Import loads a CSV export, normalizes it and persists the canonical
// tuples. Content already imported, compared by checksum, is rejected with a
// DuplicateImportError.
func (s *Service) Import(ctx context.Context, filename string, content []byte, hint normalize.Provider, source string) (*ImportResult, error) {
	start := time.Now()
	log := logger.FromContext(logger.WithDataset(ctx, filename))

	loaded, err := frame.LoadCSV(filename, content)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues(string(hint), "error").Inc()
		return nil, err
	}

	existing, err := s.store.FindImportByChecksum(ctx, loaded.Checksum)
	switch {
	case err == nil:
		metrics.ImportsTotal.WithLabelValues(existing.Provider, "duplicate").Inc()
		log.Info("Skipping duplicate import", zap.Uint("existing_id", existing.ID))
		return nil, &DuplicateImportError{Filename: filename, ExistingID: existing.ID}
	case !storage.IsNotFound(err):
		return nil, fmt.Errorf("checksum lookup: %w", err)
	}

	ds := s.builder.Build(filename, loaded.Frame, hint)
	imp := &models.FileImport{
		Name:      filename,
		Provider:  string(ds.Provider),
		Shape:     string(ds.Shape),
		Checksum:  loaded.Checksum,
		SizeBytes: loaded.Size,
		Encoding:  loaded.Encoding,
		RowCount:  len(ds.Records),
		Source:    source,
	}
	if imp.Source == "" {
		imp.Source = models.SourceUpload
	}
	if err := imp.SetMapping(ds.Mapping); err != nil {
		return nil, fmt.Errorf("encode column mapping: %w", err)
	}

	tuples := ds.Tuples(0)
	if err := s.store.CreateImport(ctx, imp, tuples); err != nil {
		metrics.ImportsTotal.WithLabelValues(imp.Provider, "error").Inc()
		return nil, fmt.Errorf("persist import: %w", err)
	}
	for i := range tuples {
		tuples[i].FileID = imp.ID
	}

	result := &ImportResult{Import: *imp, Rows: len(tuples)}
	if s.mirror != nil && len(tuples) > 0 {
		if _, err := s.mirror.InsertTuples(ctx, ds.Provider, tuples); err != nil {
			log.Warn("ClickHouse mirror insert failed", zap.Uint("file_id", imp.ID), logger.ErrorField(err))
		} else {
			result.Mirrored = true
		}
	}

	s.cache.Clear()
	metrics.ImportsTotal.WithLabelValues(imp.Provider, "success").Inc()
	metrics.ImportedRows.WithLabelValues(imp.Provider).Add(float64(len(tuples)))
	log.Info("Import completed",
		zap.Uint("file_id", imp.ID),
		zap.String("provider", imp.Provider),
		zap.String("shape", imp.Shape),
		logger.CountField(len(tuples)),
		logger.DurationField(time.Since(start)))
	return result, nil
}

// ListImports returns every import, newest first
func (s *Service) ListImports(ctx context.Context) ([]models.FileImport, error) {
	return s.store.ListImports(ctx)
}

// GetImport returns one import
func (s *Service) GetImport(ctx context.Context, id uint) (*models.FileImport, error) {
	return s.store.GetImport(ctx, id)
}

// DeleteImport removes an import, its tuples and its mirrored rows
func (s *Service) DeleteImport(ctx context.Context, id uint) error {
	if err := s.store.DeleteImport(ctx, id); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.DeleteFile(ctx, id); err != nil {
			logger.FromContext(logger.WithFileID(ctx, id)).Warn("ClickHouse mirror delete failed", logger.ErrorField(err))
		}
	}
	s.cache.Clear()
	logger.FromContext(logger.WithFileID(ctx, id)).Info("Import deleted")
	return nil
}

// LoadDataset rehydrates the dataset persisted under id
func (s *Service) LoadDataset(ctx context.Context, id uint) (*dataset.CostDataset, error) {
	imp, err := s.store.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	tuples, err := s.store.LoadTuples(ctx, id)
	if err != nil {
		return nil, err
	}
	ds := dataset.FromTuples(imp.Name, normalize.ParseProvider(imp.Provider), tuples)
	ds.Shape = dataset.Shape(imp.Shape)
	ds.FileID = &imp.ID
	if m := imp.Mapping(); m != nil {
		ds.Mapping = m
	}
	return ds, nil
}

// LoadDatasets rehydrates ids, or every import when ids is empty
func (s *Service) LoadDatasets(ctx context.Context, ids []uint) ([]*dataset.CostDataset, error) {
	if len(ids) == 0 {
		imports, err := s.store.ListImports(ctx)
		if err != nil {
			return nil, err
		}
		if len(imports) == 0 {
			return nil, ErrNoImports
		}
		for _, imp := range imports {
			ids = append(ids, imp.ID)
		}
	}

	out := make([]*dataset.CostDataset, 0, len(ids))
	for _, id := range ids {
		ds, err := s.LoadDataset(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load dataset %d: %w", id, err)
		}
		out = append(out, ds)
	}
	return out, nil
}
