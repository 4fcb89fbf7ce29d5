package ingestion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// InvoiceFile is a PDF read from an invoice directory
type InvoiceFile struct {
	Name string
	Path string
	Data []byte
}

// InvoiceArchive keeps uploaded invoice PDFs in a directory
type InvoiceArchive struct {
	dir string
	now func() time.Time
}

// NewInvoiceArchive creates an archive rooted at dir
func NewInvoiceArchive(dir string) *InvoiceArchive {
	return &InvoiceArchive{dir: dir, now: time.Now}
}

// Save writes an uploaded invoice. The stored name is prefixed with the
// upload time so repeated uploads of the same file never collide.
func (a *InvoiceArchive) Save(filename string, content io.Reader) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create invoice directory: %w", err)
	}

	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "invoice.pdf"
	}
	if !strings.EqualFold(filepath.Ext(base), ".pdf") {
		base += ".pdf"
	}

	path := filepath.Join(a.dir, a.now().UTC().Format("20060102T150405.000000000")+"_"+base)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// LoadPDFs reads every .pdf file in the directory, sorted by name.
// A missing directory holds no invoices.
func (a *InvoiceArchive) LoadPDFs() ([]InvoiceFile, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []InvoiceFile{}, nil
		}
		return nil, fmt.Errorf("failed to read invoice directory: %w", err)
	}

	files := make([]InvoiceFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(a.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", e.Name(), err)
		}
		files = append(files, InvoiceFile{Name: e.Name(), Path: path, Data: data})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
