// Package templates holds the server-rendered pages. The dashboard is a thin
// shell; its data arrives over the datastar SSE endpoints.
package templates

import "fmt"

//go:generate templ generate

type DashboardProps struct {
	Title       string
	Version     string
	StartYear   int
	CurrentYear int
}

// dashboardSignals is the initial datastar signal store for the page.
func dashboardSignals(props DashboardProps) string {
	return fmt.Sprintf("{countries: [], startYear: %d, endYear: %d, chartData: [], metadata: {}}",
		props.StartYear, props.CurrentYear)
}
