package setting

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Properties serves configuration keys from the settings table.
// Lookup failures are logged and read as unset so the file configuration applies.
type Properties struct {
	db *gorm.DB
}

// NewProperties returns Properties reading from db.
func NewProperties(db *gorm.DB) *Properties {
	return &Properties{db: db}
}

// Property returns the stored value of key or "".
func (p *Properties) Property(key string) string {
	s, err := Get(context.Background(), p.db, key)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("failed to read setting")
		}

		return ""
	}

	return strings.TrimSpace(string(s.Value))
}

// PropertyAsLong returns the stored value of key as an integer, or def.
func (p *Properties) PropertyAsLong(key string, def int64) int64 {
	value := p.Property(key)
	if value == "" {
		return def
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("setting is not a number")
		return def
	}

	return n
}
