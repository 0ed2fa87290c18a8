package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// VolunteerID is the public identifier printed on cards: <PREFIX><DDMMYY><NNNN>.
// The shape is a public contract (QR payloads, download filenames) and must not change.
type VolunteerID string

const (
	// dateLayout renders day, month, two-digit year.
	dateLayout = "020106"

	SuffixMin = 1000
	SuffixMax = 9999
)

var prefixPattern = regexp.MustCompile(`^[A-Z]{1,6}$`)

// ValidatePrefix checks an identifier prefix: 1-6 uppercase ASCII letters.
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return fmt.Errorf("identifier prefix %q must be 1-6 uppercase letters", prefix)
	}
	return nil
}

// DateComponent returns the DDMMYY component for a joining date, on its UTC calendar day.
func DateComponent(joining time.Time) string {
	return joining.UTC().Format(dateLayout)
}

// NewVolunteerID assembles an identifier. suffix must lie in [SuffixMin, SuffixMax].
func NewVolunteerID(prefix string, joining time.Time, suffix int) (VolunteerID, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	if suffix < SuffixMin || suffix > SuffixMax {
		return "", fmt.Errorf("identifier suffix %d out of range", suffix)
	}
	return VolunteerID(fmt.Sprintf("%s%s%04d", prefix, DateComponent(joining), suffix)), nil
}

// ParseVolunteerID normalizes (trim, uppercase) and shape-checks an identifier
// against the configured prefix.
func ParseVolunteerID(prefix, raw string) (VolunteerID, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok || len(rest) != len(dateLayout)+4 {
		return "", false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	if _, err := time.Parse(dateLayout, rest[:len(dateLayout)]); err != nil {
		return "", false
	}
	if rest[len(dateLayout)] == '0' {
		return "", false
	}
	return VolunteerID(s), true
}

func (v VolunteerID) String() string {
	return string(v)
}

func (v VolunteerID) IsZero() bool {
	return v == ""
}
