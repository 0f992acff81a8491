package util

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestBaseFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"events.log", ".log"},
		{"events.log.gz", ".log"},
		{"EVENTS.XLSX", ".xlsx"},
		{"dir.v2/events", ""},
		{"events.txt.GZ", ".txt"},
	}

	for _, tt := range tests {
		if got := BaseFormat(tt.path); got != tt.want {
			t.Errorf("BaseFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestOpenFile_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	gz.Write([]byte("1 a 0\n"))
	gz.Close()
	f.Close()

	rc, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "1 a 0\n" {
		t.Errorf("content = %q", data)
	}
}

func TestOpenFile_Missing(t *testing.T) {
	if _, err := OpenFile(filepath.Join(t.TempDir(), "nope.log")); !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}
