package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	name, err := fs.SaveImage("../evil/mug.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	if strings.Contains(name, "/") || !strings.HasSuffix(name, "_mug.png") {
		t.Fatalf("unexpected stored name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read stored image: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("stored content = %q", data)
	}
}
