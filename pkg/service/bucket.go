package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"costlens/internal/models"
	"costlens/pkg/logger"
	"costlens/pkg/normalize"
)

// BucketImportResult summarizes one pass over the bucket
type BucketImportResult struct {
	Bucket   string            `json:"bucket"`
	Imported []ImportResult    `json:"imported"`
	Skipped  []string          `json:"skipped"`
	Failed   map[string]string `json:"failed"`
	Duration time.Duration     `json:"duration"`
}

// ImportBucket imports every CSV object of the configured bucket. Objects
// already imported are skipped and a failing object does not stop the pass.
func (s *Service) ImportBucket(ctx context.Context, hint normalize.Provider) (*BucketImportResult, error) {
	if s.bucket == nil {
		return nil, ErrObjectStoreDisabled
	}
	start := time.Now()
	result := &BucketImportResult{
		Bucket:   s.bucket.Bucket(),
		Imported: []ImportResult{},
		Skipped:  []string{},
		Failed:   map[string]string{},
	}

	objects, err := s.bucket.ListCSV(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With(zap.String("bucket", result.Bucket))
	log.Info("Bucket import started", logger.CountField(len(objects)))

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		content, err := s.bucket.Download(ctx, obj.Key)
		if err != nil {
			log.Warn("Object download failed", zap.String("key", obj.Key), logger.ErrorField(err))
			result.Failed[obj.Key] = err.Error()
			continue
		}
		res, err := s.Import(ctx, obj.Name, content, hint, models.SourceBucket)
		switch {
		case IsDuplicate(err):
			result.Skipped = append(result.Skipped, obj.Key)
		case err != nil:
			log.Warn("Object import failed", zap.String("key", obj.Key), logger.ErrorField(err))
			result.Failed[obj.Key] = err.Error()
		default:
			result.Imported = append(result.Imported, *res)
		}
	}

	result.Duration = time.Since(start)
	log.Info("Bucket import finished",
		zap.Int("imported", len(result.Imported)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
		logger.DurationField(result.Duration))
	return result, nil
}

