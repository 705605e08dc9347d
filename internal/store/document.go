package store

import (
	"context"
	"strings"
)

const (
	// UserClass is the class of the object holding user profile fields.
	UserClass = "XWiki.XWikiUsers"
	// GroupClass is the class of group member objects, one per member.
	GroupClass = "XWiki.XWikiGroups"
	// DirectoryClass is the class of the object linking a profile to its directory entry.
	DirectoryClass = "XWiki.LDAPProfileClass"

	// FieldMember is the group object field holding the member full name.
	FieldMember = "member"
	// FieldDN is the directory object field holding the distinguished name.
	FieldDN = "dn"
	// FieldUID is the directory object field holding the directory uid.
	FieldUID = "uid"
	// FieldActive is the user object field flagging an enabled account.
	FieldActive = "active"
	// FieldPassword is the user object field holding the local password hash.
	FieldPassword = "password"

	// DefaultSpace is the space user profiles and groups live in.
	DefaultSpace = "XWiki"

	wikiSeparator  = ":"
	spaceSeparator = "."
)

// Reference addresses a document.
type Reference struct {
	Wiki  string
	Space string
	Name  string
}

// FullName returns Space.Name.
func (r Reference) FullName() string {
	return r.Space + spaceSeparator + r.Name
}

// String returns wiki:Space.Name.
func (r Reference) String() string {
	return r.Wiki + wikiSeparator + r.FullName()
}

// Valid reports whether every part of the reference is set.
func (r Reference) Valid() bool {
	return r.Wiki != "" && r.Space != "" && r.Name != ""
}

// ParseReference resolves "wiki:Space.Name", "Space.Name" or "Name" relative to
// the given default wiki and space.
func ParseReference(s, defaultWiki, defaultSpace string) Reference {
	ref := Reference{Wiki: defaultWiki, Space: defaultSpace}

	if wiki, rest, ok := strings.Cut(s, wikiSeparator); ok {
		ref.Wiki = wiki
		s = rest
	}

	if space, name, ok := strings.Cut(s, spaceSeparator); ok {
		ref.Space = space
		s = name
	}

	ref.Name = s

	return ref
}

// Object is a typed set of string properties attached to a document.
type Object map[string]string

// Clone returns a copy of the object.
func (o Object) Clone() Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}

	return out
}

// Document is a stored page with its objects grouped by class.
// New is true for documents that were never saved.
type Document struct {
	Ref     Reference
	New     bool
	Objects map[string][]Object
}

// NewDocument returns an unsaved document for ref.
func NewDocument(ref Reference) *Document {
	return &Document{
		Ref:     ref,
		New:     true,
		Objects: map[string][]Object{},
	}
}

// Object returns the first object of the class or nil.
func (d *Document) Object(class string) Object {
	if objs := d.Objects[class]; len(objs) > 0 {
		return objs[0]
	}

	return nil
}

// ObjectsOf returns all objects of the class.
func (d *Document) ObjectsOf(class string) []Object {
	return d.Objects[class]
}

// HasObject reports whether the document carries an object of the class.
func (d *Document) HasObject(class string) bool {
	return len(d.Objects[class]) > 0
}

// AddObject appends obj to the objects of the class.
func (d *Document) AddObject(class string, obj Object) {
	if d.Objects == nil {
		d.Objects = map[string][]Object{}
	}

	d.Objects[class] = append(d.Objects[class], obj)
}

// EnsureObject returns the first object of the class, creating an empty one if needed.
func (d *Document) EnsureObject(class string) Object {
	if obj := d.Object(class); obj != nil {
		return obj
	}

	obj := Object{}
	d.AddObject(class, obj)

	return obj
}

// RemoveObjects drops every object of the class for which match returns true
// and returns how many were removed.
func (d *Document) RemoveObjects(class string, match func(Object) bool) int {
	objs := d.Objects[class]
	kept := objs[:0]

	for _, obj := range objs {
		if !match(obj) {
			kept = append(kept, obj)
		}
	}

	removed := len(objs) - len(kept)

	if len(kept) == 0 {
		delete(d.Objects, class)
	} else {
		d.Objects[class] = kept
	}

	return removed
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Ref:     d.Ref,
		New:     d.New,
		Objects: make(map[string][]Object, len(d.Objects)),
	}

	for class, objs := range d.Objects {
		cp := make([]Object, len(objs))
		for i, obj := range objs {
			cp[i] = obj.Clone()
		}

		out.Objects[class] = cp
	}

	return out
}

// Query selects documents holding an object of Class whose Field equals Value.
// FoldCase compares values case-insensitively.
type Query struct {
	Wiki     string
	Class    string
	Field    string
	Value    string
	FoldCase bool
}

// Matches reports whether obj satisfies the field condition of the query.
func (q Query) Matches(obj Object) bool {
	v, ok := obj[q.Field]
	if !ok {
		return false
	}

	if q.FoldCase {
		return strings.EqualFold(v, q.Value)
	}

	return v == q.Value
}

// Store persists documents. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored document or, when absent, a new empty document for ref.
	Get(ctx context.Context, ref Reference) (*Document, error)
	// Save persists doc. A document with New set is created atomically and
	// ErrDocumentExists is returned if ref is already taken. On success New is cleared.
	Save(ctx context.Context, doc *Document) error
	// Exists reports whether a document is stored under ref.
	Exists(ctx context.Context, ref Reference) (bool, error)
	// Search returns references of documents matching q, sorted by full name.
	Search(ctx context.Context, q Query) ([]Reference, error)
}
