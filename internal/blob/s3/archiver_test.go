package s3blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

type fakeWriter struct {
	path        string
	contentType string
	body        []byte
	multipart   bool
	err         error
}

func (f *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.path, f.contentType = path, contentType
	f.body, _ = io.ReadAll(data)
	return nil
}

func (f *fakeWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	if f.err != nil {
		return f.err
	}
	f.path, f.multipart = path, true
	f.body, _ = io.ReadAll(data)
	return nil
}

func TestSnapshotArchiverWritesDatedPath(t *testing.T) {
	w := &fakeWriter{}
	a := NewSnapshotArchiver(w)

	loc := time.FixedZone("UTC-5", -5*3600)
	snap := domain.MarketSnapshot{
		ScanID:     "scan-1",
		CapturedAt: time.Date(2024, 3, 9, 22, 30, 0, 0, loc), // 2024-03-10 03:30 UTC
		Polymarket: []domain.Market{{Platform: domain.PlatformPolymarket, MarketID: "0xabc", Question: "Q", YesPrice: 0.4, NoPrice: 0.6}},
	}

	path, err := a.Archive(context.Background(), snap)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if want := "snapshots/2024/03/10/scan-1.json"; path != want || w.path != want {
		t.Fatalf("path = %q (writer %q), want %q", path, w.path, want)
	}
	if w.contentType != "application/json" || w.multipart {
		t.Errorf("small snapshot should use Put with JSON content type")
	}

	var got domain.MarketSnapshot
	if err := json.Unmarshal(w.body, &got); err != nil {
		t.Fatalf("body is not a snapshot: %v", err)
	}
	if got.ScanID != "scan-1" || len(got.Polymarket) != 1 || got.Polymarket[0].MarketID != "0xabc" {
		t.Errorf("round-tripped snapshot = %+v", got)
	}
}

func TestSnapshotArchiverPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	a := NewSnapshotArchiver(&fakeWriter{err: boom})
	if _, err := a.Archive(context.Background(), domain.MarketSnapshot{ScanID: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"http://localhost:9000", true, "http://localhost:9000"},
		{"localhost:9000", false, "http://localhost:9000"},
		{"e2.idrivee2.com", true, "https://e2.idrivee2.com"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.in, tt.useSSL); got != tt.want {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.in, tt.useSSL, got, tt.want)
		}
	}
}
