package genes

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"studyloader/pkg/domain"
)

// ParseGeneFile reads a tab-delimited gene catalog with a header row naming
// at least entrez_id and symbol. Optional columns are type, cytoband and
// aliases (pipe separated). Column names are matched case-insensitively.
func ParseGeneFile(r io.Reader) ([]domain.Gene, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read gene header: %w", err)
		}
		return nil, fmt.Errorf("gene file is empty")
	}
	cols := make(map[string]int)
	for i, name := range strings.Split(scanner.Text(), "\t") {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	entrezCol, ok := cols["entrez_id"]
	if !ok {
		return nil, fmt.Errorf("gene file header missing entrez_id")
	}
	symbolCol, ok := cols["symbol"]
	if !ok {
		return nil, fmt.Errorf("gene file header missing symbol")
	}
	field := func(fields []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	var out []domain.Gene
	line := 1
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if entrezCol >= len(fields) || symbolCol >= len(fields) {
			return nil, fmt.Errorf("gene file line %d: too few columns", line)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fields[entrezCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("gene file line %d: entrez id: %w", line, err)
		}
		g := domain.Gene{
			EntrezID:   id,
			HugoSymbol: strings.ToUpper(strings.TrimSpace(fields[symbolCol])),
			Type:       field(fields, "type"),
			Cytoband:   field(fields, "cytoband"),
		}
		if aliases := field(fields, "aliases"); aliases != "" && aliases != "-" {
			for _, a := range strings.Split(aliases, "|") {
				if a = strings.TrimSpace(a); a != "" {
					g.Aliases = append(g.Aliases, a)
				}
			}
		}
		out = append(out, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene file: %w", err)
	}
	return out, nil
}
