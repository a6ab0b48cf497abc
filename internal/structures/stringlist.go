package structures

import "errors"

// ErrNotStringList is returned when a property payload isn't validly
// NUL-separated (e.g. it doesn't end in NUL, or contains no strings).
var ErrNotStringList = errors.New("fdt: property is not a NUL-separated string list")

// SplitStringList decodes value as a sequence of NUL-terminated strings,
// as used by properties like "compatible" and "device_type". An empty
// value decodes to an empty (non-nil) slice.
func SplitStringList(value []byte) ([]string, error) {
	if len(value) == 0 {
		return []string{}, nil
	}
	if value[len(value)-1] != 0 {
		return nil, ErrNotStringList
	}

	var out []string
	start := 0
	for i, b := range value {
		if b == 0 {
			out = append(out, string(value[start:i]))
			start = i + 1
		}
	}
	return out, nil
}

// FirstString returns the first NUL-terminated string in value, the
// common case for single-valued string properties like "model".
func FirstString(value []byte) (string, error) {
	list, err := SplitStringList(value)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", ErrNotStringList
	}
	return list[0], nil
}

// StripUnitAddress removes a trailing "@<unit-address>" suffix from a
// node name, so callers matching node names (FindChild, path lookups)
// can compare against the base name per the FDT naming convention.
func StripUnitAddress(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '@' {
			return name[:i]
		}
	}
	return name
}
