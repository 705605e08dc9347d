package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
)

// ProfileSynchronizer creates user profiles from directory entries and keeps
// their mapped fields in line with the directory.
type ProfileSynchronizer struct {
	store      store.Store
	fields     []FieldMapping
	updateUser bool
}

// NewProfileSynchronizer creates a synchronizer writing to st.
func NewProfileSynchronizer(st store.Store, settings Settings) *ProfileSynchronizer {
	return &ProfileSynchronizer{
		store:      st,
		fields:     settings.Fields,
		updateUser: settings.UpdateUser,
	}
}

// CreateProfile creates the profile document ref for entry. If another writer
// created ref first, the returned error wraps store.ErrDocumentExists.
func (p *ProfileSynchronizer) CreateProfile(
	ctx context.Context,
	ref store.Reference,
	entry *DirectoryEntry,
	rawUID string,
) (*store.Document, error) {
	doc := store.NewDocument(ref)

	user := doc.EnsureObject(store.UserClass)
	user[store.FieldActive] = "1"

	p.apply(user, entry)
	setLink(doc, entry.DN, rawUID)

	if err := p.store.Save(ctx, doc); err != nil {
		if errors.Is(err, store.ErrDocumentExists) {
			return nil, fmt.Errorf("profile %s: %w", ref, err)
		}

		return nil, fmt.Errorf("%w: create profile %s: %w", ErrPersistence, ref, err)
	}

	log.Info().Str("profile", ref.String()).Str("dn", entry.DN).Msg("created ldap user profile")

	return doc, nil
}

// Link turns an existing profile into a directory managed one: it gets the link
// object and its mapped fields filled from entry.
func (p *ProfileSynchronizer) Link(ctx context.Context, doc *store.Document, entry *DirectoryEntry, rawUID string) error {
	p.apply(doc.EnsureObject(store.UserClass), entry)
	setLink(doc, entry.DN, rawUID)

	if err := p.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("%w: link profile %s: %w", ErrPersistence, doc.Ref, err)
	}

	log.Info().Str("profile", doc.Ref.String()).Str("dn", entry.DN).Msg("linked user profile to ldap")

	return nil
}

// Sync overwrites every mapped field of the profile with the directory value and
// saves the document when something changed. Fields outside the mapping are left
// alone. Sync does nothing when user updates are disabled.
func (p *ProfileSynchronizer) Sync(ctx context.Context, doc *store.Document, entry *DirectoryEntry) (bool, error) {
	if !p.updateUser {
		return false, nil
	}

	if !p.apply(doc.EnsureObject(store.UserClass), entry) {
		return false, nil
	}

	if err := p.store.Save(ctx, doc); err != nil {
		return false, fmt.Errorf("%w: sync profile %s: %w", ErrPersistence, doc.Ref, err)
	}

	log.Debug().Str("profile", doc.Ref.String()).Msg("synchronized ldap user profile")

	return true, nil
}

// apply copies the mapped attributes into obj and reports whether a value changed.
// A missing attribute empties the field.
func (p *ProfileSynchronizer) apply(obj store.Object, entry *DirectoryEntry) bool {
	changed := false

	for _, f := range p.fields {
		value := entry.Value(f.Attribute)

		if current, ok := obj[f.Field]; !ok || current != value {
			obj[f.Field] = value
			changed = true
		}
	}

	return changed
}

// setLink stores dn and uid in the link object, keeping the first-seen uid.
func setLink(doc *store.Document, dn, rawUID string) {
	link := doc.EnsureObject(store.DirectoryClass)
	link[store.FieldDN] = dn

	if link[store.FieldUID] == "" {
		link[store.FieldUID] = rawUID
	}
}
