package backend

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
)

// ProcessRequest is one field photograph with its location metadata.
type ProcessRequest struct {
	Empresa      string
	Fundo        string
	Sector       string
	Lote         string
	Hilera       string
	NumeroPlanta string
	Latitud      *float64
	Longitud     *float64

	Filename string
	Image    io.Reader
}

// formData returns the multipart fields, omitting empty values.
func (r ProcessRequest) formData() map[string]string {
	fields := map[string]string{
		"empresa":       r.Empresa,
		"fundo":         r.Fundo,
		"sector":        r.Sector,
		"lote":          r.Lote,
		"hilera":        r.Hilera,
		"numero_planta": r.NumeroPlanta,
	}
	if r.Latitud != nil {
		fields["latitud"] = strconv.FormatFloat(*r.Latitud, 'f', -1, 64)
	}
	if r.Longitud != nil {
		fields["longitud"] = strconv.FormatFloat(*r.Longitud, 'f', -1, 64)
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}

// ProcessResponse is the API's analysis of an uploaded image.
type ProcessResponse struct {
	Success          bool     `json:"success"`
	ID               RecordID `json:"id"`
	LightPercentage  float64  `json:"porcentaje_luz"`
	ShadowPercentage float64  `json:"porcentaje_sombra"`
	ImageName        string   `json:"image_name"`
	ResultURL        string   `json:"imagen_resultado_url"`
	Message          string   `json:"mensaje"`
}

// RecordID accepts both numeric and string identifiers.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}

// Record is one stored processing result.
type Record struct {
	ID               RecordID `json:"id"`
	Empresa          string   `json:"empresa"`
	Fundo            string   `json:"fundo"`
	Sector           string   `json:"sector"`
	Lote             string   `json:"lote"`
	Hilera           string   `json:"hilera"`
	NumeroPlanta     string   `json:"numero_planta"`
	LightPercentage  float64  `json:"porcentaje_luz"`
	ShadowPercentage float64  `json:"porcentaje_sombra"`
	TakenAt          string   `json:"fecha_tomada"`
	Latitud          *float64 `json:"latitud"`
	Longitud         *float64 `json:"longitud"`
	Timestamp        string   `json:"timestamp"`
	Image            string   `json:"imagen"`
	Device           string   `json:"dispositivo"`
	Address          string   `json:"direccion"`
}

// HistoryResponse lists stored processing results.
type HistoryResponse struct {
	Success bool     `json:"success"`
	Total   int      `json:"total_procesamientos"`
	Records []Record `json:"procesamientos"`
}

// FieldData is the empresa -> fundo -> sector -> lote hierarchy used to tag
// uploads, plus the flat value lists.
type FieldData struct {
	Empresas     []string                                  `json:"empresa"`
	Fundos       []string                                  `json:"fundo"`
	Sectores     []string                                  `json:"sector"`
	Lotes        []string                                  `json:"lote"`
	Hierarchical map[string]map[string]map[string][]string `json:"hierarchical"`
}

// FundosOf returns the fundos of empresa in sorted order.
func (f *FieldData) FundosOf(empresa string) []string {
	return sortedKeys(f.Hierarchical[empresa])
}

// SectoresOf returns the sectors of a fundo in sorted order.
func (f *FieldData) SectoresOf(empresa, fundo string) []string {
	return sortedKeys(f.Hierarchical[empresa][fundo])
}

// LotesOf returns the lots of a sector.
func (f *FieldData) LotesOf(empresa, fundo, sector string) []string {
	return f.Hierarchical[empresa][fundo][sector]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HealthResponse is the API liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
}
