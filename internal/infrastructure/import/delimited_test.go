package csvimport

import (
	"io"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, dr *DelimitedReader) ([]int, [][]string) {
	t.Helper()
	var lines []int
	var records [][]string
	for {
		line, fields, err := dr.Next()
		if err == io.EOF {
			return lines, records
		}
		require.NoError(t, err)
		lines = append(lines, line)
		records = append(records, fields)
	}
}

func TestNewDelimitedReader(t *testing.T) {
	t.Run("BOM is dropped", func(t *testing.T) {
		dr, err := NewDelimitedReader(strings.NewReader("\xEF\xBB\xBFPO No.\tItem\nPO-1\tBolt"))
		require.NoError(t, err)

		headers, err := dr.Header()
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"PO No.": 0, "Item": 1}, headers)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewDelimitedReader(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid UTF-8", func(t *testing.T) {
		_, err := NewDelimitedReader(strings.NewReader("PO No.\tItem\n\xff\xfe\xfd\tBolt"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("UTF-16 export is transcoded", func(t *testing.T) {
		text := "Vendor\tItem\nบริษัท สยาม\tBolt\n"
		encoded := []byte{0xFF, 0xFE}
		for _, u := range utf16.Encode([]rune(text)) {
			encoded = append(encoded, byte(u), byte(u>>8))
		}

		dr, err := NewDelimitedReader(strings.NewReader(string(encoded)))
		require.NoError(t, err)
		headers, err := dr.Header()
		require.NoError(t, err)
		assert.Equal(t, 0, headers["Vendor"])

		_, records := readAll(t, dr)
		require.Len(t, records, 1)
		assert.Equal(t, "บริษัท สยาม", records[0][0])
	})

	t.Run("multibyte rune across the probe window", func(t *testing.T) {
		head := "Item\n"
		body := strings.Repeat("a", encodingProbeSize-len(head)-1) + "ส"
		_, err := NewDelimitedReader(strings.NewReader(head + body))
		assert.NoError(t, err)
	})

	t.Run("custom delimiter", func(t *testing.T) {
		dr, err := NewDelimitedReader(strings.NewReader("a;b;c\n1; 2;3"), WithDelimiter(';'))
		require.NoError(t, err)
		headers, err := dr.Header()
		require.NoError(t, err)
		assert.Len(t, headers, 3)

		_, records := readAll(t, dr)
		assert.Equal(t, []string{"1", "2", "3"}, records[0])
	})
}

func TestDelimitedReader_Header(t *testing.T) {
	t.Run("names are trimmed and the first duplicate wins", func(t *testing.T) {
		dr, _ := NewDelimitedReader(strings.NewReader("  PO No. \t Item \tItem\t\nPO-1\tBolt\tNut\t"))
		headers, err := dr.Header()
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"PO No.": 0, "Item": 1}, headers)
	})

	t.Run("blank header row", func(t *testing.T) {
		dr, _ := NewDelimitedReader(strings.NewReader("\t\t\n1\t2"))
		_, err := dr.Header()
		assert.ErrorIs(t, err, ErrMissingHeader)
	})
}

func TestDelimitedReader_Next(t *testing.T) {
	t.Run("empty tab fields keep their position", func(t *testing.T) {
		dr, _ := NewDelimitedReader(strings.NewReader("a\tb\tc\n1\t\t3"))
		_, _ = dr.Header()

		lines, records := readAll(t, dr)
		assert.Equal(t, []int{2}, lines)
		assert.Equal(t, []string{"1", "", "3"}, records[0])
	})

	t.Run("blank records are skipped and lines stay accurate", func(t *testing.T) {
		dr, _ := NewDelimitedReader(strings.NewReader("a\tb\n1\t2\n\t\n\n3\t4\n"))
		_, _ = dr.Header()

		lines, records := readAll(t, dr)
		assert.Equal(t, []int{2, 5}, lines)
		assert.Equal(t, "3", records[1][0])
	})

	t.Run("quoted fields", func(t *testing.T) {
		dr, _ := NewDelimitedReader(strings.NewReader("a\tb\n\"Bolt, M8\"\t\"Say \"\"hi\"\"\"\nx\ty"))
		_, _ = dr.Header()

		lines, records := readAll(t, dr)
		assert.Equal(t, []string{"Bolt, M8", `Say "hi"`}, records[0])
		assert.Equal(t, []int{2, 3}, lines)
	})
}
