package models

// Object is a typed object attached to a document, such as a user profile,
// a directory link or a group member entry.
type Object struct {
	// ID is the unique identifier for the object.
	ID uint64 `gorm:"primaryKey"`
	// DocumentID is the ID of the owning document.
	DocumentID uint64 `gorm:"not null;index"`
	// Class is the object class, e.g. "XWiki.XWikiUsers".
	Class string `gorm:"size:255;not null;index"`
	// Number orders objects of the same class within a document.
	Number int `gorm:"not null"`
	// Properties are the name/value pairs of the object.
	Properties []ObjectProperty `gorm:"foreignKey:ObjectID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the Object model.
func (Object) TableName() string {
	return "objects"
}

// ObjectProperty is a single string property of an object.
// Properties are stored as rows so searches can filter on them.
type ObjectProperty struct {
	// ID is the unique identifier for the property.
	ID uint64 `gorm:"primaryKey"`
	// ObjectID is the ID of the owning object.
	ObjectID uint64 `gorm:"not null;index"`
	// Name is the property name, e.g. "email".
	Name string `gorm:"size:100;not null;index"`
	// Value is the property value.
	Value string `gorm:"size:1024"`
}

// TableName specifies the database table name for the ObjectProperty model.
func (ObjectProperty) TableName() string {
	return "object_properties"
}
