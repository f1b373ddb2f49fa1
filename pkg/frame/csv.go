package frame

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loaded is a decoded export plus the metadata used for import bookkeeping
type Loaded struct {
	Name     string
	Frame    *RawFrame
	Size     int64
	Checksum string // hex sha256 of the raw bytes
	Encoding string
}

// LoadCSV decodes delimited content. UTF-8 is tried first, then ISO-8859-1.
// The delimiter is sniffed from the header line.
func LoadCSV(filename string, content []byte) (*Loaded, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, newLoadError(filename, "file has no content", ErrEmptyContent)
	}

	loaded := &Loaded{
		Name:     filename,
		Size:     int64(len(content)),
		Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
	}

	text, encoding, err := decode(content)
	if err != nil {
		return nil, newLoadError(filename, "could not determine the file encoding", err)
	}
	loaded.Encoding = encoding

	f, err := parseDelimited(text)
	if err != nil {
		return nil, newLoadError(filename, "could not parse delimited content", err)
	}
	loaded.Frame = f
	return loaded, nil
}

// ReadCSV reads r fully and calls LoadCSV
func ReadCSV(filename string, r io.Reader) (*Loaded, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, newLoadError(filename, "read failed", err)
	}
	return LoadCSV(filename, content)
}

func decode(content []byte) ([]byte, string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return content, "utf-8", nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return nil, "", err
	}
	return decoded, "latin-1", nil
}

func parseDelimited(text []byte) (*RawFrame, error) {
	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	header := records[0]
	blank := true
	for _, h := range header {
		if h != "" {
			blank = false
			break
		}
	}
	if blank {
		return nil, ErrNoHeader
	}
	for i, h := range header {
		if h == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return New(header, records[1:]), nil
}

// sniffDelimiter picks the most frequent of , ; and tab on the first line
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
