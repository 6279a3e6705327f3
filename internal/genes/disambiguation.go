package genes

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"

	"studyloader/pkg/domain"
)

//go:embed disambiguation.tsv
var bundledDisambiguation string

// Disambiguation maps ambiguous symbol text to one curated entrez id.
type Disambiguation map[string]int64

// BundledDisambiguation parses the curated table shipped with the binary.
func BundledDisambiguation() (Disambiguation, error) {
	return ParseDisambiguation(strings.NewReader(bundledDisambiguation))
}

// ParseDisambiguation reads "alias<TAB>entrez_id" lines; '#' starts a comment.
func ParseDisambiguation(r io.Reader) (Disambiguation, error) {
	out := make(Disambiguation)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("disambiguation line %d: expected 2 fields, got %d", line, len(fields))
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("disambiguation line %d: entrez id: %w", line, err)
		}
		out[strings.ToUpper(strings.TrimSpace(fields[0]))] = id
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read disambiguation: %w", err)
	}
	return out, nil
}

// index resolves each entry against the catalog, dropping entries whose
// entrez id is unknown.
func (d Disambiguation) index(c *Catalog) map[string]domain.Gene {
	out := make(map[string]domain.Gene, len(d))
	for alias, id := range d {
		if g, ok := c.ByEntrezID(id); ok {
			out[alias] = g
		}
	}
	return out
}
