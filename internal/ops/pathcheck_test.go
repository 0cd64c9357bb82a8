package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/errors"
)

func TestValidatePath_TraversalRejected(t *testing.T) {
	setupHome(t)
	cfg := config.DefaultConfig()

	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../backup.jsonl"},
		{"deep traversal", "../../etc/backup.jsonl"},
		{"mid-path traversal", "/tmp/../etc/backup.jsonl"},
		{"hidden in path", "/tmp/safe/../../../etc/shadow.jsonl"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidatePath_ExtensionRequired(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	for _, path := range []string{"/tmp/backup", "/tmp/backup.json", "/tmp/backup.txt"} {
		t.Run(path, func(t *testing.T) {
			err := ValidatePath(path, PathCheckWrite, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidatePath_EmptyPath(t *testing.T) {
	if err := ValidatePath("", PathCheckWrite, nil); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidatePath_DirectoryRestriction(t *testing.T) {
	exports := setupHome(t)
	cfg := config.DefaultConfig()

	if err := ValidatePath(filepath.Join(t.TempDir(), "backup.jsonl"), PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("outside allowed dirs: expected ErrInvalidRequest, got: %v", err)
	}

	if err := ValidatePath(filepath.Join(exports, "nested", "backup.jsonl"), PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("nested dir: expected ErrInvalidRequest, got: %v", err)
	}

	if err := ValidatePath(filepath.Join(exports, "backup.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("exports dir: unexpected error: %v", err)
	}
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	setupHome(t)
	extra := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{extra, "relative/ignored"}

	if err := ValidatePath(filepath.Join(extra, "backup.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("allowed path: unexpected error: %v", err)
	}
}

func TestValidatePath_AllowUnsafePaths(t *testing.T) {
	setupHome(t)
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	if err := ValidatePath(filepath.Join(tmpDir, "deep", "backup.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("unexpected error with AllowUnsafePaths: %v", err)
	}
}

func TestValidatePath_ReadMissingFile(t *testing.T) {
	exports := setupHome(t)

	err := ValidatePath(filepath.Join(exports, "missing.jsonl"), PathCheckRead, config.DefaultConfig())
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got: %v", err)
	}
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "real.jsonl")
	if err := os.WriteFile(target, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(tmpDir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
		if err := ValidatePath(link, mode, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("mode %d: expected ErrInvalidRequest, got: %v", mode, err)
		}
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"backup.jsonl", false},
		{"/a/b/c.jsonl", false},
		{"a..b.jsonl", false},
		{"../x.jsonl", true},
		{"a/../x.jsonl", true},
		{"a/..", true},
	}
	for _, tc := range tests {
		if got := containsTraversal(tc.path); got != tc.want {
			t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
