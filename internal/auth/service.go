package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
)

// Scope selects the wiki an authentication runs in.
type Scope struct {
	Wiki string
}

// Source tells which provider accepted the credentials.
type Source string

const (
	// SourceLDAP marks principals bound against the directory.
	SourceLDAP Source = "ldap"
	// SourceLocal marks principals checked against a stored password.
	SourceLocal Source = "local"
)

// Principal is an authenticated identity.
type Principal struct {
	// Name is the fully qualified profile reference, e.g. xwiki:XWiki.hhornblower.
	Name     string `json:"name"`
	Wiki     string `json:"wiki"`
	LocalUID string `json:"localUid"`
	DN       string `json:"dn,omitempty"`
	Source   Source `json:"source"`
}

// Service authenticates users against the directory and keeps their profile and
// groups in the document store up to date.
type Service struct {
	settings   Settings
	store      store.Store
	directory  Directory
	local      *LocalProvider
	normalizer UIDNormalizer
	profiles   *ProfileSynchronizer
	groups     *GroupResolver

	// provisioning of one directory entry runs once at a time
	flight singleflight.Group
}

// NewService wires the authentication core. A nil GroupService is derived from
// the directory when it can list groups.
func NewService(settings Settings, st store.Store, directory Directory, groups GroupService) *Service {
	if groups == nil {
		if lookup, ok := directory.(GroupLookup); ok {
			groups = NewMembershipService(st, lookup)
		}
	}

	return &Service{
		settings:   settings,
		store:      st,
		directory:  directory,
		local:      NewLocalProvider(st),
		normalizer: NewUIDNormalizer(),
		profiles:   NewProfileSynchronizer(st, settings),
		groups:     NewGroupResolver(st, groups, settings),
	}
}

// Groups returns the group resolver, e.g. to invalidate its cache.
func (s *Service) Groups() *GroupResolver {
	return s.groups
}

// Local returns the local credential provider.
func (s *Service) Local() *LocalProvider {
	return s.local
}

// Authenticate checks login and password. It returns a nil principal and a nil
// error when the credentials are refused, whatever the reason. An error is only
// returned when the credentials were accepted but the profile or groups could
// not be stored.
func (s *Service) Authenticate(ctx context.Context, scope Scope, login, password string) (*Principal, error) {
	wiki := scope.Wiki
	if wiki == "" {
		wiki = s.settings.MainWiki
	}

	logger := log.With().
		Str("attempt", uuid.NewString()).
		Str("wiki", wiki).
		Str("login", login).
		Logger()

	if !s.settings.Enabled || s.directory == nil {
		return s.authenticateLocal(ctx, logger, wiki, login, password)
	}

	entry, err := s.directory.Authenticate(ctx, login, password)
	if err != nil {
		s.reject(logger, SourceLDAP, err)

		if s.settings.TryLocal {
			return s.authenticateLocal(ctx, logger, wiki, login, password)
		}

		return nil, nil
	}

	// the bind succeeded, provisioning runs to completion
	ctx = context.WithoutCancel(ctx)

	principal, err := s.provision(ctx, wiki, login, entry)
	if err != nil {
		attemptsTotal.WithLabelValues(resultError, string(SourceLDAP)).Inc()
		logger.Error().Err(err).Str("dn", entry.DN).Msg("ldap login accepted but profile could not be stored")

		return nil, err
	}

	attemptsTotal.WithLabelValues(resultSuccess, string(SourceLDAP)).Inc()
	logger.Info().Str("principal", principal.Name).Str("dn", entry.DN).Msg("ldap login succeeded")

	return principal, nil
}

// provision finds or creates the profile, synchronizes it and reconciles its groups.
// Concurrent logins of the same entry share one run.
func (s *Service) provision(ctx context.Context, wiki, login string, entry *DirectoryEntry) (*Principal, error) {
	rawUID := entry.Value(s.settings.UIDAttr)
	if rawUID == "" {
		rawUID = login
	}

	key := wiki + "|" + strings.ToLower(entry.DN)

	v, err, _ := s.flight.Do(key, func() (any, error) {
		doc, err := s.findOrCreate(ctx, wiki, entry, rawUID)
		if err != nil {
			return nil, err
		}

		if _, err = s.profiles.Sync(ctx, doc, entry); err != nil {
			return nil, err
		}

		if err = s.groups.Reconcile(ctx, wiki, doc.Ref.Name, entry); err != nil {
			return nil, err
		}

		return Principal{
			Name:     doc.Ref.String(),
			Wiki:     wiki,
			LocalUID: doc.Ref.Name,
			DN:       entry.DN,
			Source:   SourceLDAP,
		}, nil
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	principal, _ := v.(Principal)

	return &principal, nil
}

// findOrCreate returns the profile linked to entry, adopting or creating one when needed.
func (s *Service) findOrCreate(
	ctx context.Context,
	wiki string,
	entry *DirectoryEntry,
	rawUID string,
) (*store.Document, error) {
	for range maxSaveAttempts {
		doc, err := s.findLinked(ctx, wiki, entry, rawUID)
		if err != nil || doc != nil {
			return doc, err
		}

		name, err := s.normalizer.Normalize(ctx, rawUID, s.claim(wiki, entry.DN))
		if err != nil {
			return nil, err
		}

		ref := store.Reference{Wiki: wiki, Space: store.DefaultSpace, Name: name}

		doc, err = s.store.Get(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: load profile %s: %w", ErrPersistence, ref, err)
		}

		if !doc.New {
			// an owned profile without a DN is claimed now, so the next
			// entry cleaning to the same name walks on to a suffix
			if doc.Object(store.DirectoryClass)[store.FieldDN] == "" {
				if err = s.profiles.Link(ctx, doc, entry, rawUID); err != nil {
					return nil, err
				}
			}

			return doc, nil
		}

		doc, err = s.profiles.CreateProfile(ctx, ref, entry, rawUID)
		if errors.Is(err, store.ErrDocumentExists) {
			log.Debug().Str("profile", ref.String()).Msg("profile created concurrently, looking it up again")
			continue
		}

		return doc, err
	}

	return nil, fmt.Errorf("%w: profile of %s keeps being created concurrently", ErrPersistence, entry.DN)
}

// findLinked looks up the profile carrying a link to entry: first by DN, ignoring
// case, then by the exact stored uid among links stored without a DN.
func (s *Service) findLinked(
	ctx context.Context,
	wiki string,
	entry *DirectoryEntry,
	rawUID string,
) (*store.Document, error) {
	byDN, err := s.searchLinked(ctx, wiki, store.FieldDN, entry.DN, true)
	if err != nil {
		return nil, err
	}

	for _, doc := range byDN {
		if doc.HasObject(store.UserClass) && sameDN(doc.Object(store.DirectoryClass)[store.FieldDN], entry.DN) {
			return doc, nil
		}
	}

	byUID, err := s.searchLinked(ctx, wiki, store.FieldUID, rawUID, false)
	if err != nil {
		return nil, err
	}

	for _, doc := range byUID {
		if !doc.HasObject(store.UserClass) || doc.Object(store.DirectoryClass)[store.FieldDN] != "" {
			continue
		}

		if err = s.profiles.Link(ctx, doc, entry, rawUID); err != nil {
			return nil, err
		}

		return doc, nil
	}

	return nil, nil
}

func (s *Service) searchLinked(
	ctx context.Context,
	wiki, field, value string,
	foldCase bool,
) ([]*store.Document, error) {
	refs, err := s.store.Search(ctx, store.Query{
		Wiki:     wiki,
		Class:    store.DirectoryClass,
		Field:    field,
		Value:    value,
		FoldCase: foldCase,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search profiles by %s: %w", ErrPersistence, field, err)
	}

	docs := make([]*store.Document, 0, len(refs))

	for _, ref := range refs {
		doc, errGet := s.store.Get(ctx, ref)
		if errGet != nil {
			return nil, fmt.Errorf("%w: load profile %s: %w", ErrPersistence, ref, errGet)
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// claim tells whether the profile XWiki.<name> is free, owned by dn or taken.
func (s *Service) claim(wiki, dn string) ClaimFunc {
	return func(ctx context.Context, name string) (Claim, error) {
		ref := store.Reference{Wiki: wiki, Space: store.DefaultSpace, Name: name}

		doc, err := s.store.Get(ctx, ref)
		if err != nil {
			return ClaimTaken, fmt.Errorf("%w: load profile %s: %w", ErrPersistence, ref, err)
		}

		switch {
		case doc.New:
			return ClaimFree, nil
		case !doc.HasObject(store.UserClass):
			// a page that is not a profile is never clobbered
			return ClaimTaken, nil
		}

		linked := doc.Object(store.DirectoryClass)[store.FieldDN]
		if linked == "" || sameDN(linked, dn) {
			return ClaimOwned, nil
		}

		return ClaimTaken, nil
	}
}

func (s *Service) authenticateLocal(
	ctx context.Context,
	logger zerolog.Logger,
	wiki, login, password string,
) (*Principal, error) {
	doc, err := s.local.Authenticate(ctx, wiki, login, password)

	switch {
	case errors.Is(err, ErrPersistence):
		attemptsTotal.WithLabelValues(resultError, string(SourceLocal)).Inc()
		logger.Error().Err(err).Msg("local login failed")

		return nil, err
	case err != nil:
		s.reject(logger, SourceLocal, err)
		return nil, nil
	}

	attemptsTotal.WithLabelValues(resultSuccess, string(SourceLocal)).Inc()
	logger.Info().Str("principal", doc.Ref.String()).Msg("local login succeeded")

	return &Principal{
		Name:     doc.Ref.String(),
		Wiki:     wiki,
		LocalUID: doc.Ref.Name,
		Source:   SourceLocal,
	}, nil
}

// reject records a refused login. Callers only see a nil principal, the reason
// is kept in the log and the auth_attempts_total metric.
func (s *Service) reject(logger zerolog.Logger, source Source, err error) {
	result := resultInvalidCredentials
	event := logger.Info()

	switch {
	case errors.Is(err, ErrAccessDenied):
		result = resultAccessDenied
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrUserAccountDisabled):
	default:
		result = resultUnavailable
		event = logger.Error()
	}

	attemptsTotal.WithLabelValues(result, string(source)).Inc()
	event.Err(err).Str("source", string(source)).Str("result", result).Msg("login refused")
}
