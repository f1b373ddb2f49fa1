package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"costlens/pkg/config"
)

type fakeS3 struct {
	pages   [][]types.Object
	objects map[string][]byte
	calls   int
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	i := f.calls
	f.calls++
	out := &s3.ListObjectsV2Output{Contents: f.pages[i]}
	if i+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func obj(key string, day int) types.Object {
	return types.Object{
		Key:          aws.String(key),
		Size:         aws.Int64(10),
		LastModified: aws.Time(time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)),
	}
}

func TestListCSVFollowsPagesAndFilters(t *testing.T) {
	api := &fakeS3{pages: [][]types.Object{
		{obj("exports/b.csv", 3), obj("exports/readme.txt", 1)},
		{obj("exports/a.CSV", 2), obj("exports/archive.csv.gz", 1)},
	}}
	s := NewWithClient(api, "billing", "exports/")

	objs, err := s.ListCSV(context.Background())
	if err != nil {
		t.Fatalf("ListCSV returned error: %v", err)
	}
	if api.calls != 2 {
		t.Errorf("expected 2 page requests, got %d", api.calls)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 csv objects, got %+v", objs)
	}
	if objs[0].Name != "a.CSV" || objs[1].Name != "b.csv" {
		t.Errorf("expected oldest first, got %s then %s", objs[0].Name, objs[1].Name)
	}
}

func TestDownload(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{"k.csv": []byte("a,b\n1,2\n")}}
	s := NewWithClient(api, "billing", "")

	body, err := s.Download(context.Background(), "k.csv")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if string(body) != "a,b\n1,2\n" {
		t.Errorf("unexpected body %q", body)
	}
	if _, err := s.Download(context.Background(), "missing.csv"); err == nil {
		t.Error("expected an error for a missing key")
	}
}

func TestNewRequiresEnabledBucket(t *testing.T) {
	if _, err := New(context.Background(), &config.ObjectStoreConfig{Enabled: false, Bucket: "b"}); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	if _, err := New(context.Background(), nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled for nil config, got %v", err)
	}
}
