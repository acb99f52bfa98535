package models

type Metadata struct {
	TotalRecords int                      `json:"total_records"`
	Countries    int                      `json:"countries"`
	Years        string                   `json:"years"`
	Indicator    *IndicatorInfo           `json:"indicator,omitempty"`
	Indicators   map[string]IndicatorInfo `json:"indicators,omitempty"`
	LastUpdated  string                   `json:"last_updated"`
}

// CombinedPayload is the /api/data envelope.
type CombinedPayload struct {
	Data     []CombinedRecord `json:"data"`
	Metadata Metadata         `json:"metadata"`
}

// IndicatorPayload is the /api/data/co2 and /api/data/gdp envelope.
type IndicatorPayload struct {
	Data     []IndicatorRecord `json:"data"`
	Metadata Metadata          `json:"metadata"`
}

type CountriesResponse struct {
	Countries []Country `json:"countries"`
	Count     int       `json:"count"`
	Timestamp string    `json:"timestamp"`
}

type IndicatorsResponse struct {
	Indicators map[string]IndicatorDescriptor `json:"indicators"`
	Count      int                            `json:"count"`
	Timestamp  string                         `json:"timestamp"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}
