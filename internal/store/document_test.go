package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected Reference
	}{
		{
			name:     "full reference",
			input:    "sub:Main.Group1",
			expected: Reference{Wiki: "sub", Space: "Main", Name: "Group1"},
		},
		{
			name:     "space and name",
			input:    "XWiki.Group1",
			expected: Reference{Wiki: "xwiki", Space: "XWiki", Name: "Group1"},
		},
		{
			name:     "name only",
			input:    "Group1",
			expected: Reference{Wiki: "xwiki", Space: "XWiki", Name: "Group1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref := ParseReference(tc.input, "xwiki", DefaultSpace)
			assert.Equal(t, tc.expected, ref)
			assert.True(t, ref.Valid())
		})
	}
}

func TestReferenceString(t *testing.T) {
	ref := Reference{Wiki: "xwiki", Space: "XWiki", Name: "hhornblower"}

	assert.Equal(t, "XWiki.hhornblower", ref.FullName())
	assert.Equal(t, "xwiki:XWiki.hhornblower", ref.String())
	assert.False(t, Reference{Space: "XWiki", Name: "x"}.Valid())
}

func TestDocumentObjects(t *testing.T) {
	doc := NewDocument(Reference{Wiki: "xwiki", Space: "XWiki", Name: "Group1"})
	require.True(t, doc.New)
	assert.Nil(t, doc.Object(GroupClass))

	doc.AddObject(GroupClass, Object{FieldMember: "XWiki.a"})
	doc.AddObject(GroupClass, Object{FieldMember: "XWiki.b"})
	doc.AddObject(GroupClass, Object{FieldMember: "XWiki.a"})

	assert.Len(t, doc.ObjectsOf(GroupClass), 3)

	removed := doc.RemoveObjects(GroupClass, func(o Object) bool { return o[FieldMember] == "XWiki.a" })
	assert.Equal(t, 2, removed)
	assert.Len(t, doc.ObjectsOf(GroupClass), 1)

	doc.RemoveObjects(GroupClass, func(Object) bool { return true })
	assert.False(t, doc.HasObject(GroupClass))

	user := doc.EnsureObject(UserClass)
	user["email"] = "a@b.c"
	assert.Equal(t, "a@b.c", doc.Object(UserClass)["email"])
}

func TestDocumentCloneIsDeep(t *testing.T) {
	doc := NewDocument(Reference{Wiki: "xwiki", Space: "XWiki", Name: "u"})
	doc.AddObject(UserClass, Object{"email": "old"})

	cp := doc.Clone()
	cp.Object(UserClass)["email"] = "new"
	cp.AddObject(DirectoryClass, Object{FieldDN: "cn=u"})

	assert.Equal(t, "old", doc.Object(UserClass)["email"])
	assert.False(t, doc.HasObject(DirectoryClass))
}

func TestQueryMatches(t *testing.T) {
	obj := Object{FieldUID: "HHornblower"}

	assert.True(t, Query{Field: FieldUID, Value: "hhornblower", FoldCase: true}.Matches(obj))
	assert.False(t, Query{Field: FieldUID, Value: "hhornblower"}.Matches(obj))
	assert.False(t, Query{Field: FieldDN, Value: ""}.Matches(obj))
}
