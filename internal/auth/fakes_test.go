package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store/memory"
)

const (
	hornblowerDN  = "cn=Horatio Hornblower,ou=people,o=sevenSeas"
	officersDN    = "cn=officers,ou=groups,o=sevenSeas"
	captainsDN    = "cn=captains,ou=groups,o=sevenSeas"
	testMainWiki  = "xwiki"
	testFieldsMap = "last_name=sn,first_name=givenName,fullname=cn,email=mail"
)

type fakeUser struct {
	dn       string
	password string
	attrs    map[string][]string
}

// fakeDirectory binds users by login, case-insensitively like most servers.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]fakeUser
	err   error
	calls int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]fakeUser{}}
}

func (d *fakeDirectory) add(login string, u fakeUser) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[strings.ToLower(login)] = u
}

func (d *fakeDirectory) setAttr(login, name string, values ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u := d.users[strings.ToLower(login)]
	u.attrs[name] = values
}

func (d *fakeDirectory) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.err = err
}

func (d *fakeDirectory) Authenticate(_ context.Context, login, password string) (*DirectoryEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++

	if d.err != nil {
		return nil, d.err
	}

	u, ok := d.users[strings.ToLower(login)]
	if !ok || password == "" || u.password != password {
		return nil, fmt.Errorf("%w: bind rejected", ErrInvalidCredentials)
	}

	attrs := make(map[string][]string, len(u.attrs))
	for k, v := range u.attrs {
		attrs[k] = append([]string(nil), v...)
	}

	return NewDirectoryEntry(u.dn, attrs), nil
}

// fakeLookup returns scripted directory groups per user DN.
type fakeLookup struct {
	mu     sync.Mutex
	groups map[string][]string
	err    error
	calls  int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{groups: map[string][]string{}}
}

func (l *fakeLookup) set(dn string, groups ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.groups[strings.ToLower(dn)] = groups
}

func (l *fakeLookup) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.err = err
}

func (l *fakeLookup) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.calls
}

func (l *fakeLookup) MemberGroups(_ context.Context, dn, _ string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++

	if l.err != nil {
		return nil, l.err
	}

	return l.groups[strings.ToLower(dn)], nil
}

// failingStore wraps a store and refuses saves once failSave is set.
type failingStore struct {
	store.Store

	mu       sync.Mutex
	failSave bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) setFailSave(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failSave = v
}

func (f *failingStore) Save(ctx context.Context, doc *store.Document) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()

	if fail {
		return errDiskFull
	}

	return f.Store.Save(ctx, doc)
}

func testSettings(t *testing.T, extra config.Map) Settings {
	t.Helper()

	props := config.Map{
		KeyEnabled:       "1",
		KeyUIDAttr:       "uid",
		KeyBaseDN:        "o=sevenSeas",
		KeyFieldsMapping: testFieldsMap,
	}

	for k, v := range extra {
		props[k] = v
	}

	settings, errs := LoadSettings(props)
	require.Empty(t, errs)

	return settings
}

func hornblower() fakeUser {
	return fakeUser{
		dn:       hornblowerDN,
		password: "correct",
		attrs: map[string][]string{
			"uid":       {"hhornblower"},
			"sn":        {"Hornblower"},
			"givenName": {"Horatio"},
			"cn":        {"Horatio Hornblower"},
			"mail":      {"hhornblower@sevenseas.example"},
		},
	}
}

type testEnv struct {
	store     *memory.Store
	directory *fakeDirectory
	lookup    *fakeLookup
	service   *Service
}

func newTestEnv(t *testing.T, extra config.Map) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     memory.New(),
		directory: newFakeDirectory(),
		lookup:    newFakeLookup(),
	}

	env.directory.add("hhornblower", hornblower())

	settings := testSettings(t, extra)
	env.service = NewService(settings, env.store, env.directory, NewMembershipService(env.store, env.lookup))

	return env
}

func userRef(name string) store.Reference {
	return store.Reference{Wiki: testMainWiki, Space: store.DefaultSpace, Name: name}
}

func (e *testEnv) get(t *testing.T, ref store.Reference) *store.Document {
	t.Helper()

	doc, err := e.store.Get(context.Background(), ref)
	require.NoError(t, err)

	return doc
}
