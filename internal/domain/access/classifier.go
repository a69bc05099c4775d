package access

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidResourceID is returned for ids that are not positive integers.
var ErrInvalidResourceID = errors.New("access: invalid resource id")

// catalogCycle is the length of the repeating free/partial/premium pattern.
const catalogCycle = 20

// Classify maps an article id onto its access level. The catalog repeats every
// 20 items: 5 free, 10 partial, 5 premium. This is a catalog convention, not a
// security boundary.
func Classify(id int64) (AccessLevel, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidResourceID, id)
	}
	index := (id - 1) % catalogCycle
	switch {
	case index < 5:
		return LevelFree, nil
	case index < 15:
		return LevelPartial, nil
	default:
		return LevelPremium, nil
	}
}

// ParseResourceID parses the decimal form of an article id.
func ParseResourceID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidResourceID, raw)
	}
	return id, nil
}

// ClassifyID is Classify over the string form used in requests.
func ClassifyID(raw string) (AccessLevel, error) {
	id, err := ParseResourceID(raw)
	if err != nil {
		return "", err
	}
	return Classify(id)
}
