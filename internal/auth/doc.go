// Package auth authenticates users against an LDAP directory and keeps their
// wiki profile and group documents in line with it.
//
// # Authentication
//
// Service.Authenticate binds the user with the LDAPProvider. A refused login
// (bad password, unknown user, unreachable directory, excluded group) yields a
// nil principal and a nil error; the reason only shows in the log and in the
// auth_attempts_total metric. With ldap.try_local the password stored in the
// profile is checked as a fallback, and with LDAP disabled it is the only check.
//
// # Profiles
//
// The profile of a directory entry is the document XWiki.<uid> holding a user
// object and a link object (XWiki.LDAPProfileClass) with the entry DN. The uid
// is cleaned of characters that are significant in references. A name already
// used by another entry or by a page that is not a profile gets the next free
// suffix: hhornblower, hhornblower_1, hhornblower_2 ... A profile without a link
// object is adopted by the first entry logging in under its name.
//
// ProfileSynchronizer fills the mapped fields (ldap.fields_mapping) at creation
// and, with ldap.update_user, on every login.
//
// # Groups
//
// GroupResolver adds the profile to every local group of ldap.group_mapping the
// entry is a member of and removes it from mapped groups it left. Directory
// matches are cached for ldap.groupcache_expiration seconds.
//
// Example usage:
//
//	settings, _ := auth.LoadSettings(cfg.Properties())
//	provider, err := auth.NewLDAPProvider(settings)
//	service := auth.NewService(settings, st, provider, nil)
//	principal, err := service.Authenticate(ctx, auth.Scope{Wiki: "xwiki"}, login, password)
package auth
