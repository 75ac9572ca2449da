// Package appinfo decodes the per-app records printed by SteamCMD's
// app_info_print into typed app and depot records.
package appinfo

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidAppID is returned for identifiers that are not all decimal digits.
var ErrInvalidAppID = errors.New("invalid app id")

// AppID is a Steam application identifier: a non-empty string of decimal digits.
type AppID string

// String returns the identifier text.
func (id AppID) String() string {
	return string(id)
}

// ParseAppID validates s and returns it as an AppID.
func ParseAppID(s string) (AppID, error) {
	if !IsNumeric(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAppID, s)
	}
	return AppID(s), nil
}

// ParseAppIDs validates every identifier. A single invalid entry rejects the
// whole batch.
func ParseAppIDs(values []string) ([]AppID, error) {
	ids := make([]AppID, 0, len(values))
	for _, v := range values {
		id, err := ParseAppID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsNumeric reports whether s is non-empty and consists only of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// SortIDs orders ids numerically.
func SortIDs(ids []AppID) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i].String(), ids[j].String()
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
