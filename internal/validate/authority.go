package validate

import (
	"net/url"
	"strings"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/extract"
)

// Authority condition names recorded on a validation verdict.
const (
	CondAssociationNaming = "association_naming"
	CondMunicipalSource   = "municipal_source"
	CondLoi1901           = "loi_1901"
	CondPublicFacility    = "public_facility"
	CondYouthActivity     = "youth_activity"
)

// municipalHosts anchor the trusted municipal web estate.
var municipalHosts = []string{
	"paris.fr",
	"ville-de-paris.fr",
}

// facilityTerms name public venues that only organized activities use.
var facilityTerms = []string{
	"gymnase",
	"centre d'animation",
	"centre sportif",
	"salle polyvalente",
	"équipement municipal",
	"maison des associations",
}

// Authority scores how credible an extracted entity is as a real
// organization. Each condition that holds contributes one signal; an
// entity is authoritative when it collects at least MinSignals.
type Authority struct {
	MinSignals int
}

// NewAuthority returns a scorer with the given signal threshold. Zero
// or negative falls back to two signals.
func NewAuthority(minSignals int) Authority {
	if minSignals <= 0 {
		minSignals = 2
	}
	return Authority{MinSignals: minSignals}
}

// Score evaluates every condition and returns the verdict.
func (a Authority) Score(e activity.Entity) activity.Validation {
	text := strings.ToLower(strings.Join([]string{
		e.Name, e.Description, e.Context, e.Address,
	}, " "))

	var conditions []string
	if extract.HasOrgKeyword(e.Name) || extract.HasOrgKeyword(e.Context) || extract.HasOrgKeyword(e.Description) {
		conditions = append(conditions, CondAssociationNaming)
	}
	if isMunicipalURL(e.SourceURL) || isMunicipalURL(e.Website) {
		conditions = append(conditions, CondMunicipalSource)
	}
	if strings.Contains(text, "loi 1901") || strings.Contains(text, "loi de 1901") {
		conditions = append(conditions, CondLoi1901)
	}
	if containsAny(text, facilityTerms) {
		conditions = append(conditions, CondPublicFacility)
	}
	if extract.HasYouthKeyword(text) {
		conditions = append(conditions, CondYouthActivity)
	}

	return activity.Validation{
		Score:      len(conditions),
		Conditions: conditions,
		Valid:      e.Name != "" && len(conditions) >= a.MinSignals,
	}
}

// isMunicipalURL reports whether the URL lives on the Paris municipal
// estate, including the per-arrondissement mairie hosts.
func isMunicipalURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, m := range municipalHosts {
		if host == m || strings.HasSuffix(host, "."+m) {
			return true
		}
	}
	return false
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
