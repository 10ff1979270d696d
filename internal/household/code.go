package household

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"balangay/internal/geo"
)

// Household codes are "<barangayCode>-<sequence>" with the sequence
// zero-padded to at least four digits: 042114014-0001. The barangay prefix
// makes codes globally unique across barangays; the zero padding keeps them
// sortable within one.
const seqPadding = 4

var hierarchicalCode = regexp.MustCompile(`^[0-9]+-[0-9]{4,}$`)

// FormatCode renders the hierarchical code for a sequence number. Padding
// widens naturally past 9999.
func FormatCode(barangay geo.Code, seq int64) string {
	return fmt.Sprintf("%s-%0*d", barangay, seqPadding, seq)
}

// IsHierarchical reports whether code is in the hierarchical format for the
// given barangay. Anything else - including the legacy HH-prefixed random
// form - counts as legacy and is subject to migration.
func IsHierarchical(code string, barangay geo.Code) bool {
	return strings.HasPrefix(code, string(barangay)+"-") && hierarchicalCode.MatchString(code)
}

// ParseCode splits a hierarchical code into barangay and sequence.
func ParseCode(code string) (geo.Code, int64, bool) {
	if !hierarchicalCode.MatchString(code) {
		return "", 0, false
	}
	idx := strings.LastIndex(code, "-")
	seq, err := strconv.ParseInt(code[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return geo.Code(code[:idx]), seq, true
}
