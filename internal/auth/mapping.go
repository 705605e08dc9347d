package auth

import (
	"fmt"
	"strings"
)

// FieldMapping copies the directory attribute into the user object field.
type FieldMapping struct {
	Field     string
	Attribute string
}

// GroupMapping feeds a local group from one or more directory groups.
// A user is a member of LocalGroup if it is a member of any of DirectoryGroups.
type GroupMapping struct {
	LocalGroup      string
	DirectoryGroups []string
}

// MappingError reports a configuration entry that could not be parsed.
// The entry is skipped, the rest of the mapping is still used.
type MappingError struct {
	Key    string
	Entry  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s: skipping entry %q: %s", e.Key, e.Entry, e.Reason)
}

// ParseFieldsMapping parses a comma separated list of localField=directoryAttribute pairs.
func ParseFieldsMapping(key, value string) ([]FieldMapping, []error) {
	var (
		out  []FieldMapping
		errs []error
		seen = map[string]int{}
	)

	for _, raw := range strings.Split(value, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		field, attr, ok := splitPair(entry)
		if !ok {
			errs = append(errs, &MappingError{Key: key, Entry: entry, Reason: "expected field=attribute"})
			continue
		}

		// a later entry for the same field wins
		if i, dup := seen[field]; dup {
			out[i].Attribute = attr
			continue
		}

		seen[field] = len(out)
		out = append(out, FieldMapping{Field: field, Attribute: attr})
	}

	return out, errs
}

// ParseGroupMapping parses a pipe separated list of localGroup=directoryGroupDN pairs.
// Entries sharing a local group are merged in order.
func ParseGroupMapping(key, value string) ([]GroupMapping, []error) {
	var (
		out  []GroupMapping
		errs []error
		seen = map[string]int{}
	)

	for _, raw := range strings.Split(value, "|") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		group, dn, ok := splitPair(entry)
		if !ok {
			errs = append(errs, &MappingError{Key: key, Entry: entry, Reason: "expected localGroup=groupDN"})
			continue
		}

		if !strings.Contains(dn, "=") {
			errs = append(errs, &MappingError{Key: key, Entry: entry, Reason: "group is not a distinguished name"})
			continue
		}

		i, ok := seen[group]
		if !ok {
			i = len(out)
			seen[group] = i
			out = append(out, GroupMapping{LocalGroup: group})
		}

		if !containsDN(out[i].DirectoryGroups, dn) {
			out[i].DirectoryGroups = append(out[i].DirectoryGroups, dn)
		}
	}

	return out, errs
}

// splitPair cuts at the first '=' so values may contain '=' themselves.
func splitPair(entry string) (string, string, bool) {
	left, right, ok := strings.Cut(entry, "=")
	left, right = strings.TrimSpace(left), strings.TrimSpace(right)

	if !ok || left == "" || right == "" {
		return "", "", false
	}

	return left, right, true
}

func containsDN(dns []string, dn string) bool {
	for _, d := range dns {
		if sameDN(d, dn) {
			return true
		}
	}

	return false
}
