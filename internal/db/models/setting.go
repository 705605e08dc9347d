// Package models contains database model definitions.
package models

// Setting is a named configuration override stored in the database.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"size:255;uniqueIndex"`
	Value []byte
}
