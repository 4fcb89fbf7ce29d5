package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInvoiceArchive_Save(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "invoices")
	a := NewInvoiceArchive(tmpDir)
	a.now = func() time.Time { return time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC) }

	path, err := a.Save("../../etc/order 123", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	if filepath.Dir(path) != tmpDir {
		t.Errorf("file escaped the archive: %s", path)
	}
	if !strings.HasSuffix(path, "_order 123.pdf") {
		t.Errorf("unexpected name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "%PDF-1.4 body" {
		t.Errorf("content = %q", string(data))
	}
}

func TestInvoiceArchive_LoadPDFs(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "b.pdf"), []byte("%PDF-b"), 0o644)
	os.WriteFile(filepath.Join(tmpDir, "a.PDF"), []byte("%PDF-a"), 0o644)
	os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("skip"), 0o644)
	os.Mkdir(filepath.Join(tmpDir, "sub.pdf"), 0o755)

	files, err := NewInvoiceArchive(tmpDir).LoadPDFs()
	if err != nil {
		t.Fatalf("Failed to load invoices: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 invoices, got %d", len(files))
	}
	if files[0].Name != "a.PDF" || string(files[1].Data) != "%PDF-b" {
		t.Errorf("unexpected files %+v", files)
	}

	missing, err := NewInvoiceArchive(filepath.Join(tmpDir, "missing")).LoadPDFs()
	if err != nil || len(missing) != 0 {
		t.Errorf("missing directory: %v, %d files", err, len(missing))
	}
}
