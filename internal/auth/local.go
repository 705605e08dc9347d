package auth

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
)

// LocalProvider checks passwords stored in user profiles.
type LocalProvider struct {
	store store.Store
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(st store.Store) *LocalProvider {
	return &LocalProvider{store: st}
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return hash, nil
}

// Authenticate checks password against the profile wiki:XWiki.<login>.
func (p *LocalProvider) Authenticate(ctx context.Context, wiki, login, password string) (*store.Document, error) {
	ref := store.ParseReference(login, wiki, store.DefaultSpace)
	if !ref.Valid() {
		return nil, ErrUserNotFound
	}

	doc, err := p.store.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: load profile %s: %w", ErrPersistence, ref, err)
	}

	user := doc.Object(store.UserClass)
	if doc.New || user == nil {
		return nil, ErrUserNotFound
	}

	if user[store.FieldActive] == "0" {
		return nil, ErrUserAccountDisabled
	}

	hash := user[store.FieldPassword]
	if hash == "" {
		return nil, ErrInvalidPassword
	}

	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		log.Error().Err(err).Str("profile", ref.String()).Msg("failed to verify password")
		return nil, ErrInvalidPassword
	}

	if !match {
		return nil, ErrInvalidPassword
	}

	return doc, nil
}

// CreateUser creates a local profile with a hashed password and the given fields.
// It fails with an error wrapping store.ErrDocumentExists when the profile exists.
func (p *LocalProvider) CreateUser(
	ctx context.Context,
	ref store.Reference,
	password string,
	fields map[string]string,
) (*store.Document, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	doc := store.NewDocument(ref)

	user := doc.EnsureObject(store.UserClass)
	for k, v := range fields {
		user[k] = v
	}

	user[store.FieldActive] = "1"
	user[store.FieldPassword] = hash

	if err := p.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", ref, err)
	}

	return doc, nil
}

// SetActive enables or disables a local profile.
func (p *LocalProvider) SetActive(ctx context.Context, ref store.Reference, active bool) error {
	doc, err := p.store.Get(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", ref, err)
	}

	if doc.New || !doc.HasObject(store.UserClass) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, ref)
	}

	value := "0"
	if active {
		value = "1"
	}

	doc.Object(store.UserClass)[store.FieldActive] = value

	return p.store.Save(ctx, doc) //nolint:wrapcheck
}
