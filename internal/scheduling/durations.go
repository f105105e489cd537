package scheduling

import "strings"

// DefaultDurationMinutes is used for services missing from the catalogue.
const DefaultDurationMinutes = 60

var serviceDurations = map[string]int{
	"cleaning":         60,
	"regular cleaning": 60,
	"deep cleaning":    90,
	"checkup":          30,
	"consultation":     30,
	"filling":          45,
	"dental filling":   45,
	"crown":            90,
	"crown placement":  90,
	"root canal":       120,
	"extraction":       45,
	"tooth extraction": 45,
	"whitening":        60,
	"teeth whitening":  60,
	"implant":          120,
	"dental implant":   120,
	"emergency":        30,
	"emergency visit":  30,
}

// ServiceDuration returns the appointment length in minutes for a service type.
func ServiceDuration(serviceType string) int {
	if d, ok := serviceDurations[strings.ToLower(strings.TrimSpace(serviceType))]; ok {
		return d
	}
	return DefaultDurationMinutes
}

// ServiceCatalogue lists the known service types with their durations.
func ServiceCatalogue() map[string]int {
	out := make(map[string]int, len(serviceDurations))
	for k, v := range serviceDurations {
		out[k] = v
	}
	return out
}
