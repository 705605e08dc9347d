package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Properties resolves named configuration keys such as "ldap.server".
type Properties interface {
	// Property returns the value of key or "" when unset.
	Property(key string) string
	// PropertyAsLong returns the value of key as an integer or def when unset or not a number.
	PropertyAsLong(key string, def int64) int64
}

// ViperProperties serves properties from a viper instance.
type ViperProperties struct {
	v *viper.Viper
}

// NewViperProperties wraps v.
func NewViperProperties(v *viper.Viper) *ViperProperties {
	return &ViperProperties{v: v}
}

// Property implements Properties.
func (p *ViperProperties) Property(key string) string {
	if !p.v.IsSet(key) {
		return ""
	}

	return strings.TrimSpace(p.v.GetString(key))
}

// PropertyAsLong implements Properties.
func (p *ViperProperties) PropertyAsLong(key string, def int64) int64 {
	return parseLong(p.Property(key), def)
}

// Map serves properties from a plain map, mostly for tests and defaults.
type Map map[string]string

// Property implements Properties.
func (m Map) Property(key string) string {
	return strings.TrimSpace(m[key])
}

// PropertyAsLong implements Properties.
func (m Map) PropertyAsLong(key string, def int64) int64 {
	return parseLong(m.Property(key), def)
}

// Chain asks each Properties in order; the first non-empty value wins.
type Chain []Properties

// Property implements Properties.
func (c Chain) Property(key string) string {
	for _, p := range c {
		if p == nil {
			continue
		}

		if v := p.Property(key); v != "" {
			return v
		}
	}

	return ""
}

// PropertyAsLong implements Properties.
func (c Chain) PropertyAsLong(key string, def int64) int64 {
	return parseLong(c.Property(key), def)
}

func parseLong(value string, def int64) int64 {
	if value == "" {
		return def
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}

	return n
}
