package discovery

import (
	"bufio"
	"io"
	"strings"
)

// Properties holds the key/value pairs of a meta file.
type Properties map[string]string

// ParseProperties reads "key: value" or "key=value" lines. Lines starting
// with '#' or '!' are comments; the first separator on a line wins and
// lines without one are ignored.
func ParseProperties(r io.Reader) (Properties, error) {
	props := Properties{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		i := strings.IndexAny(line, ":=")
		if i <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		props[key] = strings.TrimSpace(line[i+1:])
	}
	return props, sc.Err()
}

// Get returns a property and whether it was present.
func (p Properties) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// GetOrDefault returns the property, or def when absent or blank.
func (p Properties) GetOrDefault(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Bool reads a true/false property.
func (p Properties) Bool(key string, def bool) bool {
	switch strings.ToLower(p.GetOrDefault(key, "")) {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	}
	return def
}

// List splits a property on ';' or ',' dropping blank entries.
func (p Properties) List(key string) []string {
	raw := p.GetOrDefault(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
