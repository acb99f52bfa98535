package models

const (
	CO2IndicatorCode = "EN.ATM.CO2E.PC"
	GDPIndicatorCode = "NY.GDP.PCAP.CD"
)

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// IndicatorRecord is one non-null (country, year) observation of a single
// indicator.
type IndicatorRecord struct {
	CountryCode string  `json:"country_code"`
	CountryName string  `json:"country_name"`
	Year        int     `json:"year"`
	Value       float64 `json:"value"`
}

type CombinedRecord struct {
	CountryCode  string  `json:"country_code"`
	CountryName  string  `json:"country_name"`
	Year         int     `json:"year"`
	CO2Emissions float64 `json:"co2_emissions"`
	GDPPerCapita float64 `json:"gdp_per_capita"`
}

// IndicatorInfo is the short descriptor embedded in data envelopes.
type IndicatorInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// IndicatorDescriptor is the long form served by /api/indicators.
type IndicatorDescriptor struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Source string `json:"source"`
}

var (
	CO2Indicator = IndicatorDescriptor{
		Code:   CO2IndicatorCode,
		Name:   "CO2 emissions (metric tons per capita)",
		Unit:   "metric tons per capita",
		Source: "World Bank",
	}
	GDPIndicator = IndicatorDescriptor{
		Code:   GDPIndicatorCode,
		Name:   "GDP per capita (current US$)",
		Unit:   "current US$",
		Source: "World Bank",
	}
)

func (d IndicatorDescriptor) Info() IndicatorInfo {
	return IndicatorInfo{Code: d.Code, Name: d.Name}
}

// Indicators returns the catalogue keyed by the short names used in
// envelopes ("co2", "gdp").
func Indicators() map[string]IndicatorDescriptor {
	return map[string]IndicatorDescriptor{
		"co2": CO2Indicator,
		"gdp": GDPIndicator,
	}
}
