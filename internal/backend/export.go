package backend

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// HistoryCSVName is the default file name for exported history.
const HistoryCSVName = "historial_luz_sombra.csv"

// RecordFilter selects history records. Empty fields match everything;
// Search matches any field tag case-insensitively.
type RecordFilter struct {
	Empresa string
	Fundo   string
	Search  string
}

// Match reports whether r passes the filter.
func (f RecordFilter) Match(r Record) bool {
	if f.Empresa != "" && r.Empresa != f.Empresa {
		return false
	}
	if f.Fundo != "" && r.Fundo != f.Fundo {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	for _, v := range []string{r.Empresa, r.Fundo, r.Sector, r.Lote, r.Hilera, r.NumeroPlanta} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// FilterRecords returns the records that pass f, in order.
func FilterRecords(records []Record, f RecordFilter) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Distinct returns the sorted non-empty values of field over records.
func Distinct(records []Record, field func(Record) string) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if v := field(r); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

var csvHeader = []string{
	"id", "empresa", "fundo", "sector", "lote", "hilera", "numero_planta",
	"porcentaje_luz", "porcentaje_sombra", "latitud", "longitud", "fecha_tomada", "timestamp",
}

// WriteCSV writes records with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			string(r.ID), r.Empresa, r.Fundo, r.Sector, r.Lote, r.Hilera, r.NumeroPlanta,
			formatFloat(r.LightPercentage), formatFloat(r.ShadowPercentage),
			formatCoord(r.Latitud), formatCoord(r.Longitud), r.TakenAt, r.Timestamp,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
