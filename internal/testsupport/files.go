package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// CatalogCSV is a small two-column catalog: an identifier column and a
// product title column.
const CatalogCSV = "sku,title\nSKU-001,Red cotton shirt\nSKU-002,Blue denim jeans\n"

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteCatalog writes body to dir/name and returns the path.
func WriteCatalog(t testing.TB, dir, name, body string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(dir, name), []byte(body))
}
