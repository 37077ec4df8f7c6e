// Package kbtable reads and writes the knowledge-base table: semicolon
// separated, UTF-8 with a byte-order mark, one row per record.
package kbtable

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xhad/sitekb/internal/models"
)

// ErrMissingColumn is returned by Read when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

const Delimiter = ';'

var bom = []byte{0xEF, 0xBB, 0xBF}

// Header is the column order of every written table.
var Header = []string{"question", "answer", "category", "source", "source_url"}

// lineBreaks folds CRLF and bare CR inside fields to LF. Rows end in CRLF,
// and encoding/csv cannot keep a CR inside a field on either side.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Write emits the BOM, the header and one row per record. Line breaks
// inside fields are written as LF, so Read returns them as "\n".
func Write(w io.Writer, records []models.Record) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	cw.UseCRLF = true

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		row := []string{r.Question, r.Answer, r.Category, r.Source, r.SourceURL}
		for j := range row {
			row[j] = lineBreaks.Replace(row[j])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to a temporary file next to path and renames
// it into place, so path is either the old file or the complete new one.
func WriteFile(path string, records []models.Record) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = Write(bw, records); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Read parses a table. Header names are matched after trimming, dropping
// quotes and spaces, and lower-casing. Blank rows are skipped. A row with
// an empty question or answer is an error.
func Read(r io.Reader) ([]models.Record, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty table", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, required := range []string{"question", "answer"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var records []models.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blank(row) {
			continue
		}

		line, _ := cr.FieldPos(0)
		rec := models.Record{
			Question:  field(row, cols, "question"),
			Answer:    field(row, cols, "answer"),
			Category:  field(row, cols, "category"),
			Source:    field(row, cols, "source"),
			SourceURL: field(row, cols, "source_url"),
		}
		if strings.TrimSpace(rec.Question) == "" || strings.TrimSpace(rec.Answer) == "" {
			return nil, fmt.Errorf("line %d: question and answer are required", line)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile opens and parses the table at path.
func ReadFile(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.NewReplacer(`"`, "", "'", "", " ", "").Replace(h)
	return strings.ToLower(h)
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
