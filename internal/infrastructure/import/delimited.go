package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultDelimiter is the field separator of historical purchase order exports
const DefaultDelimiter = '\t'

const encodingProbeSize = 4096

// ParserOption configures a DelimitedReader
type ParserOption func(*DelimitedReader)

// WithDelimiter overrides the tab separator
func WithDelimiter(d rune) ParserOption {
	return func(r *DelimitedReader) { r.delimiter = d }
}

// DelimitedReader reads a text export record by record. A UTF-8 BOM is
// dropped, and UTF-16 files with a BOM are transcoded to UTF-8.
type DelimitedReader struct {
	delimiter rune
	csv       *csv.Reader
}

func NewDelimitedReader(src io.Reader, opts ...ParserOption) (*DelimitedReader, error) {
	d := &DelimitedReader{delimiter: DefaultDelimiter}
	for _, opt := range opts {
		opt(d)
	}

	br := bufio.NewReaderSize(src, encodingProbeSize)
	probe, err := br.Peek(encodingProbeSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(probe) == 0 {
		return nil, ErrEmptyFile
	}
	if !hasUTF16BOM(probe) && !validPrefix(probe, len(probe) == encodingProbeSize) {
		return nil, ErrInvalidEncoding
	}

	r := csv.NewReader(transform.NewReader(br, textunicode.BOMOverride(textunicode.UTF8.NewDecoder())))
	r.Comma = d.delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	// TrimLeadingSpace would swallow empty fields when the delimiter is a tab.
	r.TrimLeadingSpace = !unicode.IsSpace(d.delimiter)
	d.csv = r
	return d, nil
}

func hasUTF16BOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xFF, 0xFE}) || bytes.HasPrefix(b, []byte{0xFE, 0xFF})
}

// validPrefix reports whether b is UTF-8, allowing a rune cut by the probe window.
func validPrefix(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if !truncated {
		return false
	}
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return true
		}
	}
	return false
}

// Header reads the first record and maps each trimmed name to its first column.
func (d *DelimitedReader) Header() (map[string]int, error) {
	record, err := d.csv.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(record))
	for i, name := range record {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	if len(index) == 0 {
		return nil, ErrMissingHeader
	}
	return index, nil
}

// Next returns the next non-blank record with the source line it starts on.
// It returns io.EOF after the last record.
func (d *DelimitedReader) Next() (int, []string, error) {
	for {
		record, err := d.csv.Read()
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		if err != nil {
			return 0, nil, fmt.Errorf("malformed record: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := d.csv.FieldPos(0)
		return line, record, nil
	}
}
