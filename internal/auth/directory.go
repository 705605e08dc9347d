package auth

import (
	"context"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// DirectoryEntry is the entry of a bound user: its distinguished name and attributes.
// Attribute names are kept lower case.
type DirectoryEntry struct {
	DN         string
	Attributes map[string][]string
}

// NewDirectoryEntry builds an entry, folding attribute names to lower case.
func NewDirectoryEntry(dn string, attributes map[string][]string) *DirectoryEntry {
	e := &DirectoryEntry{DN: dn, Attributes: make(map[string][]string, len(attributes))}

	for name, values := range attributes {
		key := strings.ToLower(name)
		e.Attributes[key] = append(e.Attributes[key], values...)
	}

	return e
}

func entryFromLDAP(entry *ldap.Entry) *DirectoryEntry {
	attrs := make(map[string][]string, len(entry.Attributes))
	for _, a := range entry.Attributes {
		attrs[a.Name] = a.Values
	}

	return NewDirectoryEntry(entry.DN, attrs)
}

// Values returns every value of the attribute.
func (e *DirectoryEntry) Values(name string) []string {
	return e.Attributes[strings.ToLower(name)]
}

// Value returns the first value of the attribute or "".
func (e *DirectoryEntry) Value(name string) string {
	if values := e.Values(name); len(values) > 0 {
		return values[0]
	}

	return ""
}

// Directory validates credentials against the directory.
//
// Authenticate returns the entry of the bound user. Errors wrap ErrInvalidCredentials,
// ErrDirectoryUnavailable or ErrAccessDenied.
type Directory interface {
	Authenticate(ctx context.Context, login, password string) (*DirectoryEntry, error)
}

// sameDN compares two distinguished names the way the directory does:
// attribute types and values case-insensitively, ignoring insignificant spaces.
func sameDN(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}

	da, errA := ldap.ParseDN(a)
	db, errB := ldap.ParseDN(b)

	if errA != nil || errB != nil {
		return false
	}

	return da.EqualFold(db)
}
