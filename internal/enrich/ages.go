package enrich

import (
	"regexp"
	"strconv"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Age phrases in the order they are tried. Ranges beat open-ended
// phrases when both appear.
var (
	ageRangeRe = regexp.MustCompile(`(?i)(?:de\s+)?(\d{1,2})\s+à\s+(\d{1,2})\s+ans`)
	ageFromRe  = regexp.MustCompile(`(?i)(?:à\s+partir\s+de|dès)\s+(\d{1,2})\s+ans`)
	ageUntilRe = regexp.MustCompile(`(?i)jusqu['’]à\s+(\d{1,2})\s+ans`)
)

// maxChildAge caps parsed values so adult-course mentions like
// "depuis 25 ans" do not leak into the range.
const maxChildAge = 18

// ParseAgeRange scans free text for age phrases. It returns nil when no
// phrase yields a plausible child age.
func ParseAgeRange(text string) *activity.AgeRange {
	if m := ageRangeRe.FindStringSubmatch(text); m != nil {
		lo, hi := atoi(m[1]), atoi(m[2])
		if lo <= hi && lo <= maxChildAge {
			return &activity.AgeRange{Min: lo, Max: hi}
		}
	}
	var r *activity.AgeRange
	if m := ageFromRe.FindStringSubmatch(text); m != nil {
		if lo := atoi(m[1]); lo <= maxChildAge {
			r = &activity.AgeRange{Min: lo, Max: maxChildAge}
		}
	}
	if m := ageUntilRe.FindStringSubmatch(text); m != nil {
		if hi := atoi(m[1]); hi <= maxChildAge {
			if r == nil {
				r = &activity.AgeRange{Min: 0, Max: hi}
			} else if hi >= r.Min {
				r.Max = hi
			}
		}
	}
	return r
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
