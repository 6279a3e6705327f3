package discovery

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"studyloader/internal/blob"
)

// CommentMarker starts metadata lines preceding a table header.
const CommentMarker = '#'

const maxLineBytes = 16 * 1024 * 1024

// SplitFields strips any leading run of comment markers and splits on tab.
// Empty fields, including trailing ones, are preserved.
func SplitFields(line string) []string {
	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimLeft(line, string(CommentMarker))
	return strings.Split(line, "\t")
}

// FileMetadata summarises a tab-delimited staging file.
type FileMetadata struct {
	Key      string
	Header   []string
	Records  int
	Comments [][]string
}

// LoadFileMetadata streams a file once: leading comment lines are collected,
// the first other line is the header, and every later line is one record.
func LoadFileMetadata(ctx context.Context, store blob.Store, key string) (FileMetadata, error) {
	t, err := OpenTable(ctx, store, key)
	if err != nil {
		return FileMetadata{}, err
	}
	defer func() { _ = t.Close() }()
	md := FileMetadata{Key: key, Header: t.Header, Comments: t.Comments}
	for t.Next() {
		md.Records++
	}
	if err := t.Err(); err != nil {
		return FileMetadata{}, err
	}
	return md, nil
}

// Table reads a tab-delimited staging file row by row.
type Table struct {
	Key      string
	Header   []string
	Comments [][]string

	rc     io.ReadCloser
	sc     *bufio.Scanner
	fields []string
	line   int
	err    error
}

// OpenTable positions a reader after the header line. Files without a
// header yield a Table with no rows.
func OpenTable(ctx context.Context, store blob.Store, key string) (*Table, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	t := &Table{Key: key, rc: rc, sc: sc}
	for sc.Scan() {
		t.line++
		text := sc.Text()
		if strings.HasPrefix(text, string(CommentMarker)) {
			t.Comments = append(t.Comments, SplitFields(text))
			continue
		}
		t.Header = SplitFields(text)
		return t, nil
	}
	if err := sc.Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return t, nil
}

// Next advances to the next record. Blank lines are records too; see Blank.
func (t *Table) Next() bool {
	if t.Header == nil || t.err != nil {
		return false
	}
	if t.sc.Scan() {
		t.line++
		t.fields = SplitFields(t.sc.Text())
		return true
	}
	if err := t.sc.Err(); err != nil {
		t.err = fmt.Errorf("read %s line %d: %w", t.Key, t.line+1, err)
	}
	return false
}

// Blank reports whether the current record has no content.
func (t *Table) Blank() bool {
	return len(t.fields) == 1 && strings.TrimSpace(t.fields[0]) == ""
}

// Fields returns the current record.
func (t *Table) Fields() []string { return t.fields }

// Line returns the 1-based line number of the current record.
func (t *Table) Line() int { return t.line }

// Err returns the first read error.
func (t *Table) Err() error { return t.err }

// Close releases the underlying reader.
func (t *Table) Close() error { return t.rc.Close() }

// ColumnIndex maps header names, case-insensitively, to positions.
func (t *Table) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		name := strings.ToUpper(strings.TrimSpace(h))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}
