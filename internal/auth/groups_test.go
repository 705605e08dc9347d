package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store/memory"
)

func newTestResolver(t *testing.T, extra config.Map) (*GroupResolver, *memory.Store, *fakeLookup) {
	t.Helper()

	props := config.Map{KeyGroupMapping: "XWiki.Officers=" + officersDN}
	for k, v := range extra {
		props[k] = v
	}

	st := memory.New()
	lookup := newFakeLookup()
	lookup.set(hornblowerDN, officersDN)

	return NewGroupResolver(st, NewMembershipService(st, lookup), testSettings(t, props)), st, lookup
}

func TestGroupCache(t *testing.T) {
	ctx := context.Background()
	entry := NewDirectoryEntry(hornblowerDN, map[string][]string{"uid": {"hhornblower"}})

	t.Run("hit within ttl", func(t *testing.T) {
		r, _, lookup := newTestResolver(t, nil)

		for range 3 {
			require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))
		}

		assert.Equal(t, 1, lookup.callCount())
	})

	t.Run("entries are per user and wiki", func(t *testing.T) {
		r, _, lookup := newTestResolver(t, nil)

		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))
		require.NoError(t, r.Reconcile(ctx, "fleet", "hhornblower", entry))
		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower_1", entry))

		assert.Equal(t, 3, lookup.callCount())
	})

	t.Run("expired entries are recomputed", func(t *testing.T) {
		st := memory.New()
		lookup := newFakeLookup()
		lookup.set(hornblowerDN, officersDN)

		settings := testSettings(t, config.Map{KeyGroupMapping: "XWiki.Officers=" + officersDN})
		settings.GroupCacheTTL = 50 * time.Millisecond

		r := NewGroupResolver(st, NewMembershipService(st, lookup), settings)

		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))
		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))
		require.Equal(t, 1, lookup.callCount())

		require.Eventually(t, func() bool {
			_ = r.Reconcile(ctx, testMainWiki, "hhornblower", entry)
			return lookup.callCount() == 2
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("invalidate and purge", func(t *testing.T) {
		r, _, lookup := newTestResolver(t, nil)

		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))
		r.Invalidate(testMainWiki, "hhornblower")
		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))
		r.Purge()
		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))

		assert.Equal(t, 3, lookup.callCount())
	})

	t.Run("zero ttl disables the cache", func(t *testing.T) {
		r, _, lookup := newTestResolver(t, config.Map{KeyGroupCacheTTL: "0"})
		assert.Nil(t, r.cache)

		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))
		require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))
		r.Invalidate(testMainWiki, "hhornblower")
		r.Purge()

		assert.Equal(t, 2, lookup.callCount())
	})
}

func TestReconcileWithoutMapping(t *testing.T) {
	st := memory.New()
	lookup := newFakeLookup()

	r := NewGroupResolver(st, NewMembershipService(st, lookup), testSettings(t, nil))

	entry := NewDirectoryEntry(hornblowerDN, nil)
	require.NoError(t, r.Reconcile(context.Background(), testMainWiki, "hhornblower", entry))

	assert.Zero(t, lookup.callCount())
	assert.Zero(t, st.Saves())
}

func TestReconcileExistingGroupKeepsOtherMembers(t *testing.T) {
	ctx := context.Background()
	r, st, _ := newTestResolver(t, nil)

	group := store.NewDocument(userRef("Officers"))
	group.AddObject(store.GroupClass, store.Object{store.FieldMember: "XWiki.wbush"})
	require.NoError(t, st.Save(ctx, group))

	entry := NewDirectoryEntry(hornblowerDN, nil)
	require.NoError(t, r.Reconcile(ctx, testMainWiki, "hhornblower", entry))

	doc, err := st.Get(ctx, userRef("Officers"))
	require.NoError(t, err)

	var members []string
	for _, obj := range doc.ObjectsOf(store.GroupClass) {
		members = append(members, obj[store.FieldMember])
	}

	assert.Equal(t, []string{"XWiki.wbush", "XWiki.hhornblower"}, members)
}

func TestReconcileConcurrentUsersShareGroup(t *testing.T) {
	ctx := context.Background()
	r, st, lookup := newTestResolver(t, nil)

	const users = 12

	var wg sync.WaitGroup

	for i := range users {
		dn := "cn=user" + string(rune('a'+i)) + ",ou=people,o=sevenSeas"
		lookup.set(dn, officersDN)

		wg.Add(1)

		go func() {
			defer wg.Done()

			uid := "user" + string(rune('a'+i))
			assert.NoError(t, r.Reconcile(ctx, testMainWiki, uid, NewDirectoryEntry(dn, nil)))
		}()
	}

	wg.Wait()

	doc, err := st.Get(ctx, userRef("Officers"))
	require.NoError(t, err)
	assert.Len(t, doc.ObjectsOf(store.GroupClass), users)
}

func TestMemberNameAcrossWikis(t *testing.T) {
	member := store.Reference{Wiki: "fleet", Space: store.DefaultSpace, Name: "hhornblower"}

	assert.Equal(t, "XWiki.hhornblower", memberName("fleet", member))
	assert.Equal(t, "fleet:XWiki.hhornblower", memberName("xwiki", member))
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	var k keyedMutex

	unlockA := k.Lock("a")
	unlockB := k.Lock("b")

	assert.Len(t, k.locks, 2)

	unlockA()
	unlockB()

	assert.Empty(t, k.locks)
}
