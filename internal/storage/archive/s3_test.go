package archive

import (
	"errors"
	"testing"

	"github.com/newthinker/meridian/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
	var _ Storage = (*LocalFS)(nil)
}

func TestS3Storage_KeyMapping(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "reports/a.json", "reports/a.json"},
		{"meridian", "reports/a.json", "meridian/reports/a.json"},
		{"/meridian/", "/reports/a.json", "meridian/reports/a.json"},
	}

	for _, tt := range tests {
		s, err := NewS3(S3Config{Bucket: "b", Region: "us-east-1", Prefix: tt.prefix})
		if err != nil {
			t.Fatalf("NewS3: %v", err)
		}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
		if back := s.rel(got); back != trimLead(tt.path) {
			t.Errorf("rel(%q) = %q", got, back)
		}
	}
}

func trimLead(p string) string {
	if len(p) > 0 && p[0] == '/' {
		return p[1:]
	}
	return p
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected config missing, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	if contentType("reports/x.json") != "application/json" {
		t.Error("json paths should be served as application/json")
	}
	if contentType("blob.bin") != "application/octet-stream" {
		t.Error("unexpected content type for binary path")
	}
}
