package auth

import (
	"context"
	"fmt"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
)

// MatchCriteria identifies a directory user to match against a group mapping.
type MatchCriteria struct {
	DN      string
	UID     string
	Mapping []GroupMapping
}

// GroupService answers group membership queries.
type GroupService interface {
	// AllGroupsNamesForMember returns the full names of the local groups of wiki
	// that currently list member.
	AllGroupsNamesForMember(ctx context.Context, wiki string, member store.Reference) ([]string, error)
	// AllMatchedGroups returns the local groups of the mapping the user is a member of,
	// in mapping order.
	AllMatchedGroups(ctx context.Context, criteria MatchCriteria) ([]string, error)
}

// GroupLookup lists the directory groups of a user.
type GroupLookup interface {
	MemberGroups(ctx context.Context, dn, uid string) ([]string, error)
}

// MembershipService implements GroupService with the document store for local
// groups and a GroupLookup for directory groups.
type MembershipService struct {
	store  store.Store
	lookup GroupLookup
}

var _ GroupService = (*MembershipService)(nil)

// NewMembershipService creates a membership service.
func NewMembershipService(st store.Store, lookup GroupLookup) *MembershipService {
	return &MembershipService{store: st, lookup: lookup}
}

// AllGroupsNamesForMember implements GroupService.
func (m *MembershipService) AllGroupsNamesForMember(
	ctx context.Context,
	wiki string,
	member store.Reference,
) ([]string, error) {
	refs, err := m.store.Search(ctx, store.Query{
		Wiki:     wiki,
		Class:    store.GroupClass,
		Field:    store.FieldMember,
		Value:    memberName(wiki, member),
		FoldCase: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search groups of %s: %w", member, err)
	}

	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.FullName()
	}

	return names, nil
}

// AllMatchedGroups implements GroupService.
func (m *MembershipService) AllMatchedGroups(ctx context.Context, criteria MatchCriteria) ([]string, error) {
	if len(criteria.Mapping) == 0 {
		return nil, nil
	}

	groups, err := m.lookup.MemberGroups(ctx, criteria.DN, criteria.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory groups of %s: %w", criteria.DN, err)
	}

	return matchMapping(criteria.Mapping, groups), nil
}

// matchMapping returns the local groups with at least one mapped directory group in groups.
func matchMapping(mapping []GroupMapping, groups []string) []string {
	var matched []string

	for _, gm := range mapping {
		for _, dn := range gm.DirectoryGroups {
			if containsDN(groups, dn) {
				matched = append(matched, gm.LocalGroup)
				break
			}
		}
	}

	return matched
}

// memberName is how a group of wiki refers to member.
func memberName(wiki string, member store.Reference) string {
	if member.Wiki == wiki {
		return member.FullName()
	}

	return member.String()
}
