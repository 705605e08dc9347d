package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
)

const (
	groupCacheSize = 10000

	// maxSaveAttempts bounds retries when a group document is created concurrently.
	maxSaveAttempts = 3
)

// GroupResolver keeps the local groups of a user in line with the group mapping.
type GroupResolver struct {
	store   store.Store
	groups  GroupService
	mapping []GroupMapping
	uidAttr string

	// nil when caching is disabled
	cache *expirable.LRU[string, []string]
	locks keyedMutex
}

// NewGroupResolver creates a resolver. Matches are cached for settings.GroupCacheTTL.
func NewGroupResolver(st store.Store, groups GroupService, settings Settings) *GroupResolver {
	r := &GroupResolver{
		store:   st,
		groups:  groups,
		mapping: settings.Groups,
		uidAttr: settings.UIDAttr,
	}

	if settings.GroupCacheTTL > 0 {
		r.cache = expirable.NewLRU[string, []string](groupCacheSize, nil, settings.GroupCacheTTL)
	}

	return r
}

// Reconcile adds the profile wiki:XWiki.localUID to every mapped local group the
// entry matches and removes it from every mapped local group it no longer matches.
// Failing queries leave the groups untouched and are not returned; failing saves
// return an error wrapping ErrPersistence.
func (r *GroupResolver) Reconcile(ctx context.Context, wiki, localUID string, entry *DirectoryEntry) error {
	if len(r.mapping) == 0 || r.groups == nil {
		return nil
	}

	member := store.Reference{Wiki: wiki, Space: store.DefaultSpace, Name: localUID}
	logger := log.With().Str("member", member.String()).Logger()

	matched, err := r.matchedGroups(ctx, wiki, localUID, entry)
	if err != nil {
		logger.Warn().Err(err).Msg("group mapping not applied, directory query failed")
		return nil
	}

	current, err := r.groups.AllGroupsNamesForMember(ctx, wiki, member)
	if err != nil {
		logger.Warn().Err(err).Msg("group mapping not applied, membership query failed")
		return nil
	}

	toAdd, toRemove := r.plan(wiki, matched, current)
	name := memberName(wiki, member)

	for _, group := range toAdd {
		if errAdd := r.addMember(ctx, group, name); errAdd != nil {
			return errAdd
		}

		logger.Info().Str("group", group.String()).Msg("added member to group")
	}

	for _, group := range toRemove {
		if errRemove := r.removeMember(ctx, group, name); errRemove != nil {
			return errRemove
		}

		logger.Info().Str("group", group.String()).Msg("removed member from group")
	}

	return nil
}

// Invalidate drops the cached matches of one user.
func (r *GroupResolver) Invalidate(wiki, localUID string) {
	if r.cache != nil {
		r.cache.Remove(cacheKey(wiki, localUID))
	}
}

// Purge drops every cached match.
func (r *GroupResolver) Purge() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

func (r *GroupResolver) matchedGroups(
	ctx context.Context,
	wiki, localUID string,
	entry *DirectoryEntry,
) ([]string, error) {
	key := cacheKey(wiki, localUID)

	if r.cache != nil {
		if groups, ok := r.cache.Get(key); ok {
			groupCacheTotal.WithLabelValues("hit").Inc()
			return groups, nil
		}

		groupCacheTotal.WithLabelValues("miss").Inc()
	}

	groups, err := r.groups.AllMatchedGroups(ctx, MatchCriteria{
		DN:      entry.DN,
		UID:     entry.Value(r.uidAttr),
		Mapping: r.mapping,
	})
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		// cached slices are never modified, a fresh result replaces the entry
		r.cache.Add(key, append([]string(nil), groups...))
	}

	return groups, nil
}

// plan returns the groups to add the member to and the mapped groups to remove it from.
// current is authoritative for removals; groups outside the mapping are never touched.
func (r *GroupResolver) plan(wiki string, matched, current []string) ([]store.Reference, []store.Reference) {
	has := make(map[string]bool, len(current))
	for _, name := range current {
		has[strings.ToLower(name)] = true
	}

	want := map[string]bool{}

	var toAdd []store.Reference

	for _, group := range matched {
		ref := store.ParseReference(group, wiki, store.DefaultSpace)
		key := strings.ToLower(ref.FullName())

		if want[key] {
			continue
		}

		want[key] = true

		if !has[key] {
			toAdd = append(toAdd, ref)
		}
	}

	var toRemove []store.Reference

	seen := map[string]bool{}

	for _, gm := range r.mapping {
		ref := store.ParseReference(gm.LocalGroup, wiki, store.DefaultSpace)
		key := strings.ToLower(ref.FullName())

		if seen[key] || want[key] || !has[key] {
			continue
		}

		seen[key] = true
		toRemove = append(toRemove, ref)
	}

	return toAdd, toRemove
}

// addMember adds one member object for name unless the group already lists it.
// The group document is created when missing.
func (r *GroupResolver) addMember(ctx context.Context, group store.Reference, name string) error {
	unlock := r.locks.Lock(group.String())
	defer unlock()

	for range maxSaveAttempts {
		doc, err := r.store.Get(ctx, group)
		if err != nil {
			return fmt.Errorf("%w: load group %s: %w", ErrPersistence, group, err)
		}

		for _, obj := range doc.ObjectsOf(store.GroupClass) {
			if strings.EqualFold(obj[store.FieldMember], name) {
				return nil
			}
		}

		doc.AddObject(store.GroupClass, store.Object{store.FieldMember: name})

		err = r.store.Save(ctx, doc)
		if errors.Is(err, store.ErrDocumentExists) {
			continue
		}

		if err != nil {
			return fmt.Errorf("%w: save group %s: %w", ErrPersistence, group, err)
		}

		return nil
	}

	return fmt.Errorf("%w: group %s keeps being created concurrently", ErrPersistence, group)
}

// removeMember drops every member object for name.
func (r *GroupResolver) removeMember(ctx context.Context, group store.Reference, name string) error {
	unlock := r.locks.Lock(group.String())
	defer unlock()

	doc, err := r.store.Get(ctx, group)
	if err != nil {
		return fmt.Errorf("%w: load group %s: %w", ErrPersistence, group, err)
	}

	if doc.New {
		return nil
	}

	removed := doc.RemoveObjects(store.GroupClass, func(obj store.Object) bool {
		return strings.EqualFold(obj[store.FieldMember], name)
	})
	if removed == 0 {
		return nil
	}

	if err = r.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("%w: save group %s: %w", ErrPersistence, group, err)
	}

	return nil
}

func cacheKey(wiki, localUID string) string {
	return wiki + ":" + localUID
}

// keyedMutex serializes work per key. Entries are dropped once nobody holds them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// Lock locks key and returns the matching unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()

	if k.locks == nil {
		k.locks = map[string]*keyedLock{}
	}

	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}

	l.refs++
	k.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--

		if l.refs == 0 {
			delete(k.locks, key)
		}

		k.mu.Unlock()
	}
}
