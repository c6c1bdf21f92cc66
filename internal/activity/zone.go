package activity

import (
	"fmt"
	"strconv"
	"strings"
)

// Zone is one Paris arrondissement.
type Zone struct {
	Name   string // conventional short name, "1er" through "20e"
	Number int
	Postal string // postal code, "75001" through "75020"
}

// Zones lists the twenty arrondissements in order.
var Zones = buildZones()

func buildZones() []Zone {
	zones := make([]Zone, 20)
	for i := range zones {
		n := i + 1
		name := strconv.Itoa(n) + "e"
		if n == 1 {
			name = "1er"
		}
		zones[i] = Zone{
			Name:   name,
			Number: n,
			Postal: fmt.Sprintf("750%02d", n),
		}
	}
	return zones
}

// ZoneByName resolves "1er", "20e", "20", or "75020" to a zone.
func ZoneByName(name string) (Zone, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, z := range Zones {
		if name == z.Name || name == strconv.Itoa(z.Number) || name == z.Postal {
			return z, true
		}
	}
	return Zone{}, false
}

// ZoneByPostal resolves a 750XX postal code.
func ZoneByPostal(postal string) (Zone, bool) {
	for _, z := range Zones {
		if z.Postal == strings.TrimSpace(postal) {
			return z, true
		}
	}
	return Zone{}, false
}
