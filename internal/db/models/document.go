package models

import "time"

// Document is a stored page addressed by wiki, space and name.
// The triple is unique, which makes creating a document an atomic check-then-create.
type Document struct {
	// ID is the unique identifier for the document.
	ID uint64 `gorm:"primaryKey"`
	// Wiki is the tenant the document belongs to.
	Wiki string `gorm:"size:100;not null;uniqueIndex:idx_document_ref"`
	// Space is the space (namespace) of the document, e.g. "XWiki".
	Space string `gorm:"size:100;not null;uniqueIndex:idx_document_ref"`
	// Name is the page name, e.g. the local uid of a user profile.
	Name string `gorm:"size:255;not null;uniqueIndex:idx_document_ref"`
	// Objects are the typed objects attached to the document.
	// Removing a document removes its objects (CASCADE).
	Objects []Object `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the document was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the document was last saved (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Document model.
func (Document) TableName() string {
	return "documents"
}
