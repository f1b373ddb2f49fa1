package frame

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadCSVBasic(t *testing.T) {
	content := []byte("Start,Service,Amount\n2024-01-01,EC2,100.0\n2024-01-02,S3,20\n")
	loaded, err := LoadCSV("aws.csv", content)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if loaded.Frame.Len() != 2 {
		t.Fatalf("rows = %d, want 2", loaded.Frame.Len())
	}
	if loaded.Size != int64(len(content)) {
		t.Errorf("size = %d", loaded.Size)
	}
	if len(loaded.Checksum) != 64 {
		t.Errorf("checksum %q is not hex sha256", loaded.Checksum)
	}
	if got := loaded.Frame.Cell(0, loaded.Frame.Index("Service")); got != "EC2" {
		t.Errorf("cell = %q", got)
	}
	if loaded.Encoding != "utf-8" {
		t.Errorf("encoding = %s", loaded.Encoding)
	}
}

func TestLoadCSVLatin1AndSemicolon(t *testing.T) {
	// "Serviço" encoded as ISO-8859-1
	content := []byte("Data;Servi\xe7o;Valor\n2024-01-01;Computa\xe7\xe3o;10,5\n")
	loaded, err := LoadCSV("oci.csv", content)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if loaded.Encoding != "latin-1" {
		t.Errorf("encoding = %s, want latin-1", loaded.Encoding)
	}
	if loaded.Frame.Columns[1] != "Serviço" {
		t.Errorf("column = %q", loaded.Frame.Columns[1])
	}
	if loaded.Frame.Cell(0, 1) != "Computação" {
		t.Errorf("cell = %q", loaded.Frame.Cell(0, 1))
	}
}

func TestLoadCSVStripsBOMAndSquaresRows(t *testing.T) {
	content := []byte("\xEF\xBB\xBFa,b,c\n1,2\n3,4,5,6\n")
	loaded, err := LoadCSV("bom.csv", content)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if loaded.Frame.Columns[0] != "a" {
		t.Errorf("BOM not stripped: %q", loaded.Frame.Columns[0])
	}
	for i, row := range loaded.Frame.Rows {
		if len(row) != 3 {
			t.Errorf("row %d has %d cells", i, len(row))
		}
	}
}

func TestLoadCSVErrors(t *testing.T) {
	_, err := LoadCSV("empty.csv", []byte("   \n"))
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
	if !strings.Contains(le.Error(), "empty.csv") {
		t.Errorf("message should name the file: %s", le.Error())
	}

	_, err = LoadCSV("blank-header.csv", []byte(",,\n1,2,3\n"))
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("expected ErrNoHeader, got %v", err)
	}
}
