package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sourceINI = `[POSTGRES]
dbname = market
user = reader
password = s3cret
host = db.internal

[REDIS]
host = cache.internal
port = 6379
db = 2
`

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), SourceFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestLoadSource(t *testing.T) {
	src, err := LoadSource(writeSource(t, sourceINI))
	if err != nil {
		t.Fatalf("LoadSource returned error: %v", err)
	}

	if got, want := src.Postgres.DSN(), "dbname=market user=reader password=s3cret host=db.internal"; got != want {
		t.Fatalf("expected DSN %q, got %q", want, got)
	}
	if got, want := src.Redis.URL(), "redis://cache.internal:6379/2"; got != want {
		t.Fatalf("expected URL %q, got %q", want, got)
	}

	opts, err := src.Redis.Options()
	if err != nil {
		t.Fatalf("Options returned error: %v", err)
	}
	if opts.Addr != "cache.internal:6379" || opts.DB != 2 {
		t.Fatalf("unexpected redis options: addr=%s db=%d", opts.Addr, opts.DB)
	}
}

func TestLoadSourceMissingFile(t *testing.T) {
	_, err := LoadSource(filepath.Join(t.TempDir(), SourceFileName))
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestLoadSourceMissingKeys(t *testing.T) {
	content := strings.Replace(sourceINI, "password = s3cret\n", "", 1)
	content = strings.Replace(content, "db = 2\n", "", 1)

	_, err := LoadSource(writeSource(t, content))
	if err == nil {
		t.Fatalf("expected error for missing keys")
	}
	for _, key := range []string{"postgres.password", "redis.db"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s to be reported, got %v", key, err)
		}
	}
}

func TestRedisOptionsRejectsBadDB(t *testing.T) {
	r := Redis{Host: "cache", Port: "6379", DB: "primary"}
	if _, err := r.Options(); err == nil {
		t.Fatalf("expected error for non-numeric db")
	}
}
