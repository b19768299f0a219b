package storage

import (
	"strconv"
)

// StrToUint converts a wire-form id string to a uint.
func StrToUint(s string) (uint, error) {
	val, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}

// StrsToUints converts a list of wire-form id strings, failing on the first
// malformed entry.
func StrsToUints(ss []string) ([]uint, error) {
	ids := make([]uint, 0, len(ss))
	for _, s := range ss {
		id, err := StrToUint(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
