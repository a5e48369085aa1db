package domain

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"nome"`
}

// Session is the persisted authentication state. Token and User are written
// and purged together.
type Session struct {
	Token string
	User  *User
}

// Report is the canonical flood report as returned by the backend.
type Report struct {
	ID           int64   `json:"idr"`
	OwnerID      int64   `json:"idusuario,omitempty"`
	Country      string  `json:"pais,omitempty"`
	State        string  `json:"estado,omitempty"`
	City         string  `json:"cidade,omitempty"`
	Neighborhood string  `json:"bairro,omitempty"`
	Address      string  `json:"endereco,omitempty"`
	ZIP          string  `json:"cep,omitempty"`
	Date         string  `json:"data,omitempty"`
	Time         string  `json:"horario,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// ReportDraft is what the client submits; the backend assigns id, owner and date.
type ReportDraft struct {
	Country      string  `json:"pais,omitempty"`
	State        string  `json:"estado,omitempty"`
	City         string  `json:"cidade,omitempty"`
	Neighborhood string  `json:"bairro,omitempty"`
	Address      string  `json:"endereco,omitempty"`
	ZIP          string  `json:"cep,omitempty"`
	Time         string  `json:"horario,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

type HeatmapPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Weight    float64 `json:"weight"`
}

// RawHeatmapPoint is a heatmap entry exactly as decoded from the backend,
// before validation. Fields hold whatever JSON type the server sent.
type RawHeatmapPoint struct {
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
	Weight    any `json:"weight"`
}

type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Address struct {
	FreeformAddress         string `json:"freeformAddress"`
	Country                 string `json:"country,omitempty"`
	CountrySubdivision      string `json:"countrySubdivision,omitempty"`
	Municipality            string `json:"municipality,omitempty"`
	MunicipalitySubdivision string `json:"municipalitySubdivision,omitempty"`
	PostalCode              string `json:"postalCode,omitempty"`
}

type POI struct {
	Name string `json:"name"`
}

// SearchResult is one candidate returned by the geocoding provider.
type SearchResult struct {
	Position Position `json:"position"`
	Address  Address  `json:"address"`
	POI      *POI     `json:"poi,omitempty"`
}

func (r SearchResult) Coordinate() Coordinate {
	return Coordinate{Latitude: r.Position.Lat, Longitude: r.Position.Lon}
}

// Title is the label shown for a result: the POI name, or "Location".
func (r SearchResult) Title() string {
	if r.POI != nil && r.POI.Name != "" {
		return r.POI.Name
	}
	return "Location"
}
