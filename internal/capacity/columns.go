package capacity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tphakala/gridscreen-go/internal/errors"
)

// REE capacity export headers. The two projected coordinate columns are
// mandatory, the rest degrade to absent fields when missing.
const (
	ColUTMX         = "Coordenada UTM X"
	ColUTMY         = "Coordenada UTM Y"
	ColName         = "Nombre Subestación"
	ColVoltage      = "Nivel de Tensión (kV)"
	ColAvailable    = "Capacidad disponible (MW)"
	ColOccupied     = "Capacidad ocupada (MW)"
	ColProvince     = "Provincia"
	ColMunicipality = "Municipio"
)

// columnMap is the resolved header layout of one table. It is built once
// per table so the hard-fail rule stays in one place; optional columns
// resolve to -1 when absent.
type columnMap struct {
	utmX         int
	utmY         int
	name         int
	voltage      int
	available    int
	occupied     int
	province     int
	municipality int
}

// headerKey reduces a header cell for tolerant comparison: accents stripped,
// case folded, inner whitespace collapsed. REE downloads are not consistent
// about accent marks or casing across portal versions.
func headerKey(h string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), h)
	if err != nil {
		stripped = h
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// resolveColumns matches the expected headers against the table's actual
// header, preferring exact header text and falling back to the tolerant
// headerKey form. Missing mandatory coordinate columns fail the table; the
// rest may be absent.
func resolveColumns(t *RawTable) (*columnMap, error) {
	exact := make(map[string]int, len(t.Header))
	tolerant := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		trimmed := strings.TrimSpace(h)
		if _, ok := exact[trimmed]; !ok {
			exact[trimmed] = i
		}
		key := headerKey(h)
		if _, ok := tolerant[key]; !ok {
			tolerant[key] = i
		}
	}

	lookup := func(name string) int {
		if i, ok := exact[name]; ok {
			return i
		}
		if i, ok := tolerant[headerKey(name)]; ok {
			return i
		}
		return -1
	}

	cm := &columnMap{
		utmX:         lookup(ColUTMX),
		utmY:         lookup(ColUTMY),
		name:         lookup(ColName),
		voltage:      lookup(ColVoltage),
		available:    lookup(ColAvailable),
		occupied:     lookup(ColOccupied),
		province:     lookup(ColProvince),
		municipality: lookup(ColMunicipality),
	}

	for _, mandatory := range []struct {
		name  string
		index int
	}{
		{ColUTMX, cm.utmX},
		{ColUTMY, cm.utmY},
	} {
		if mandatory.index < 0 {
			return nil, errors.Newf("missing required column %q", mandatory.name).
				Component("capacity").
				Category(errors.CategoryMissingColumn).
				TableContext(t.Label, -1).
				Context("column", mandatory.name).
				Build()
		}
	}

	return cm, nil
}

// cell reads one field from a possibly ragged row. Out-of-range and
// unresolved columns read as empty.
func cell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}
