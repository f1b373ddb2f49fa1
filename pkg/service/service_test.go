package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costlens/internal/models"
	"costlens/pkg/cache"
	"costlens/pkg/chat"
	"costlens/pkg/clickhouse"
	"costlens/pkg/config"
	"costlens/pkg/normalize"
	"costlens/pkg/objectstore"
	"costlens/pkg/storage"
)

const awsCSV = `Start,Service,Amount
2024-01-05,EC2,100
2024-02-05,EC2,100
2024-03-05,EC2,300
2024-03-05,S3,50
`

const ociCSV = `lineItem/intervalUsageStart,product/service,cost/myCost
2024-02-01,COMPUTE,200
2024-03-01,COMPUTE,200
`

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	store, err := storage.Open(&config.StorageConfig{
		Driver:      storage.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "costlens.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts.Store = store
	if opts.Cache == nil {
		opts.Cache = cache.New(&config.CacheConfig{Enabled: true, TTL: 60, MaxEntries: 100})
	}
	return New(opts)
}

func importAWS(t *testing.T, s *Service) uint {
	t.Helper()
	res, err := s.Import(context.Background(), "aws.csv", []byte(awsCSV), "", models.SourceCLI)
	require.NoError(t, err)
	return res.Import.ID
}

func TestImportPersistsAndRejectsDuplicates(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()

	res, err := s.Import(ctx, "aws.csv", []byte(awsCSV), "", "")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, "AWS", res.Import.Provider)
	assert.Equal(t, models.SourceUpload, res.Import.Source)
	assert.False(t, res.Mirrored)
	assert.NotEmpty(t, res.Import.Mapping())

	_, err = s.Import(ctx, "copy.csv", []byte(awsCSV), "", "")
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
	var dup *DuplicateImportError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, res.Import.ID, dup.ExistingID)

	imports, err := s.ListImports(ctx)
	require.NoError(t, err)
	assert.Len(t, imports, 1)
}

func TestImportRejectsEmptyFile(t *testing.T) {
	s := newTestService(t, Options{})
	_, err := s.Import(context.Background(), "empty.csv", nil, "", "")
	assert.Error(t, err)
}

func TestLoadDatasetRehydrates(t *testing.T) {
	s := newTestService(t, Options{})
	id := importAWS(t, s)

	ds, err := s.LoadDataset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, normalize.ProviderAWS, ds.Provider)
	require.NotNil(t, ds.FileID)
	assert.Equal(t, id, *ds.FileID)
	assert.Len(t, ds.Records, 4)
	assert.ElementsMatch(t, []string{"EC2", "S3"}, ds.ServiceColumns())
}

func TestDatasetAnalytics(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()
	id := importAWS(t, s)

	summary, err := s.Summary(ctx, id, Query{})
	require.NoError(t, err)
	assert.InDelta(t, 550, summary.TotalCost, 1e-9)
	require.NotNil(t, summary.PeakService)
	assert.Equal(t, "EC2", *summary.PeakService)

	rankings, err := s.Rankings(ctx, id, Query{}, 1)
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, "EC2", rankings[0].Service)
	assert.InDelta(t, 500, rankings[0].TotalCost, 1e-9)

	pcts, err := s.Percentages(ctx, id, Query{})
	require.NoError(t, err)
	var sum float64
	for _, p := range pcts {
		sum += p.Percentage
	}
	assert.InDelta(t, 100, sum, 0.02)

	monthly, err := s.Monthly(ctx, id, Query{})
	require.NoError(t, err)
	assert.Len(t, monthly, 3)

	stats, err := s.Statistics(ctx, id, Query{Services: []string{"S3"}})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "S3", stats[0].Service)
}

func TestQueryFiltersByDate(t *testing.T) {
	s := newTestService(t, Options{})
	id := importAWS(t, s)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	summary, err := s.Summary(context.Background(), id, Query{Start: &start})
	require.NoError(t, err)
	assert.InDelta(t, 350, summary.TotalCost, 1e-9)
}

func TestForecastMapsInsufficientHistoryToEmpty(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()
	id := importAWS(t, s)

	res, err := s.Forecast(ctx, id, Query{}, 3, "S3")
	require.NoError(t, err)
	assert.Empty(t, res.Points)
	assert.Equal(t, "S3", res.Service)

	res, err = s.Forecast(ctx, id, Query{}, 3, "")
	require.NoError(t, err)
	require.Len(t, res.Points, 3)
	for _, p := range res.Points {
		assert.LessOrEqual(t, p.Lower, p.Forecast)
		assert.LessOrEqual(t, p.Forecast, p.Upper)
	}
}

func TestAnomaliesRecommendationsAndChat(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()
	id := importAWS(t, s)

	records, err := s.Anomalies(ctx, id, Query{}, AnomalyQuery{})
	require.NoError(t, err)
	assert.NotNil(t, records)

	recs, err := s.Recommendations(ctx, id, Query{})
	require.NoError(t, err)
	categories := make([]string, len(recs))
	for i, r := range recs {
		categories[i] = r.Category
	}
	assert.Contains(t, categories, "compute_optimization")
	assert.Contains(t, categories, "cost_concentration")

	text, err := s.Insights(ctx, id, Query{})
	require.NoError(t, err)
	assert.Contains(t, text, "550")

	resp, err := s.Chat(ctx, id, "What was the total cost?")
	require.NoError(t, err)
	assert.Equal(t, chat.VerbTotal, resp.Spec.Verb)
}

func TestMultiCloudViews(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()
	awsID := importAWS(t, s)
	oci, err := s.Import(ctx, "oci.csv", []byte(ociCSV), "", "")
	require.NoError(t, err)
	assert.Equal(t, "OCI", oci.Import.Provider)

	view, err := s.MultiCloud(ctx, MultiCloudQuery{IDs: []uint{awsID, oci.Import.ID}, Period: "6m"})
	require.NoError(t, err)
	require.NotNil(t, view.Window)

	kpis := view.KPIs()
	assert.InDelta(t, 950, kpis.TotalCost, 1e-9)
	assert.Equal(t, "2024-03", kpis.MaxMonth)

	shares := view.Shares()
	require.Len(t, shares, len(normalize.CloudOrder))
	assert.Equal(t, "AWS", shares[0].Provider)
	assert.InDelta(t, 57.89, shares[0].Pct, 1e-9)
	assert.InDelta(t, 42.11, shares[1].Pct, 1e-9)

	assert.Len(t, view.Trend(), 3)
	assert.NotEmpty(t, view.Matrix())
	assert.NotEmpty(t, view.Treemap(0))
	assert.Len(t, view.Stacked("category"), 3)

	spikes, err := s.MultiCloudAnomalies(ctx, MultiCloudQuery{Period: "6m"})
	require.NoError(t, err)
	require.Len(t, spikes, 1)
	assert.Equal(t, "EC2", spikes[0].Service)
	assert.InDelta(t, 200, spikes[0].VariationPct, 1e-9)

	insights, err := s.MultiCloudInsights(ctx, MultiCloudQuery{})
	require.NoError(t, err)
	assert.Len(t, insights, 5)

	scanned, err := s.ScanAnomalies(ctx)
	require.NoError(t, err)
	assert.Len(t, scanned, 1)
}

func TestMultiCloudWithoutImports(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()

	_, err := s.MultiCloud(ctx, MultiCloudQuery{})
	assert.ErrorIs(t, err, ErrNoImports)

	insights, err := s.MultiCloudInsights(ctx, MultiCloudQuery{})
	require.NoError(t, err)
	assert.Len(t, insights, 5)
}

func TestWarehouseTotalsWithoutMirror(t *testing.T) {
	s := newTestService(t, Options{})
	_, err := s.WarehouseTotals(context.Background(), nil)
	assert.ErrorIs(t, err, clickhouse.ErrDisabled)
}

func TestDeleteImportClearsData(t *testing.T) {
	s := newTestService(t, Options{})
	ctx := context.Background()
	id := importAWS(t, s)

	_, err := s.Summary(ctx, id, Query{})
	require.NoError(t, err)
	assert.Positive(t, s.CacheStats().CacheSize)

	require.NoError(t, s.DeleteImport(ctx, id))
	assert.Zero(t, s.CacheStats().CacheSize)

	_, err = s.LoadDataset(ctx, id)
	assert.True(t, storage.IsNotFound(err))
	assert.True(t, storage.IsNotFound(s.DeleteImport(ctx, id)))
}

type fakeBucket struct {
	objects map[string][]byte
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	day := 1
	for _, key := range []string{"exports/aws.csv", "exports/oci.csv", "exports/broken.csv", "exports/notes.txt"} {
		if _, ok := f.objects[key]; !ok {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(f.objects[key]))),
			LastModified: aws.Time(time.Date(2024, 4, day, 0, 0, 0, 0, time.UTC)),
		})
		day++
	}
	return out, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body := f.objects[aws.ToString(in.Key)]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func TestImportBucketSkipsDuplicates(t *testing.T) {
	api := &fakeBucket{objects: map[string][]byte{
		"exports/aws.csv":    []byte(awsCSV),
		"exports/oci.csv":    []byte(ociCSV),
		"exports/broken.csv": {},
		"exports/notes.txt":  []byte("ignored"),
	}}
	s := newTestService(t, Options{Bucket: objectstore.NewWithClient(api, "billing", "exports/")})
	importAWS(t, s)

	res, err := s.ImportBucket(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "billing", res.Bucket)
	require.Len(t, res.Imported, 1)
	assert.Equal(t, "oci.csv", res.Imported[0].Import.Name)
	assert.Equal(t, models.SourceBucket, res.Imported[0].Import.Source)
	assert.Equal(t, []string{"exports/aws.csv"}, res.Skipped)
	assert.Contains(t, res.Failed, "exports/broken.csv")
}

func TestImportBucketDisabled(t *testing.T) {
	s := newTestService(t, Options{})
	_, err := s.ImportBucket(context.Background(), "")
	assert.ErrorIs(t, err, ErrObjectStoreDisabled)
}
