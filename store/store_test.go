package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventgraph/errors"
)

func seqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func strPtr(s string) *string { return &s }

func TestStore_AddUserThenFind(t *testing.T) {
	st := New()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		u := st.AddUser(NewUser{Username: fmt.Sprintf("user%d", i), Email: "x@example.com"})
		require.NotEmpty(t, u.ID)
		assert.False(t, seen[u.ID], "duplicate id %s", u.ID)
		seen[u.ID] = true

		got, err := st.User(u.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(u, got); diff != "" {
			t.Errorf("find after add mismatch (-want +got):\n%s", diff)
		}
	}
	assert.Len(t, st.Users(), 50)
}

func TestStore_RegeneratesCollidingIDs(t *testing.T) {
	ids := []string{"dup", "dup", "dup", "fresh"}
	i := 0
	st := New(WithIDGenerator(func() string {
		id := ids[i]
		i++
		return id
	}))

	first := st.AddUser(NewUser{Username: "a"})
	second := st.AddUser(NewUser{Username: "b"})

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestStore_InsertionOrder(t *testing.T) {
	st := New(WithIDGenerator(seqIDs("l")))

	for _, name := range []string{"first", "second", "third"} {
		st.AddLocation(NewLocation{Name: name})
	}

	var names []string
	for _, l := range st.Locations() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
}

func TestStore_MissingIDsAreNotFound(t *testing.T) {
	st := New()
	st.AddUser(NewUser{Username: "present"})

	tests := []struct {
		name string
		kind string
		call func() error
	}{
		{"find user", KindUser, func() error { _, err := st.User("nope"); return err }},
		{"update user", KindUser, func() error { _, err := st.UpdateUser("nope", UserPatch{}); return err }},
		{"delete user", KindUser, func() error { _, err := st.DeleteUser("nope"); return err }},
		{"find event", KindEvent, func() error { _, err := st.Event("nope"); return err }},
		{"update event", KindEvent, func() error { _, err := st.UpdateEvent("nope", EventPatch{}); return err }},
		{"delete event", KindEvent, func() error { _, err := st.DeleteEvent("nope"); return err }},
		{"find location", KindLocation, func() error { _, err := st.Location("nope"); return err }},
		{"update location", KindLocation, func() error { _, err := st.UpdateLocation("nope", LocationPatch{}); return err }},
		{"delete location", KindLocation, func() error { _, err := st.DeleteLocation("nope"); return err }},
		{"find participant", KindParticipant, func() error { _, err := st.Participant("nope"); return err }},
		{"update participant", KindParticipant, func() error {
			_, err := st.UpdateParticipant("nope", ParticipantPatch{})
			return err
		}},
		{"delete participant", KindParticipant, func() error { _, err := st.DeleteParticipant("nope"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.IsNotFound(err))

			nf, ok := errors.AsNotFound(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, nf.Kind)
			assert.Equal(t, "nope", nf.ID)
			assert.Equal(t, tt.kind+" not found", err.Error())
		})
	}
}

func TestStore_UpdateIsLeftBiasedMerge(t *testing.T) {
	st := New()
	ev, err := st.AddEvent(NewEvent{
		Title: "Kickoff", Desc: "talk", Date: "2024-01-01", From: "10:00", To: "11:00",
		LocationID: "l1", UserID: "u1",
	})
	require.NoError(t, err)

	updated, err := st.UpdateEvent(ev.ID, EventPatch{Title: strPtr("Opening"), To: strPtr("12:00")})
	require.NoError(t, err)

	want := ev
	want.Title = "Opening"
	want.To = "12:00"
	if diff := cmp.Diff(want, updated); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}

	stored, err := st.Event(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored, "read-after-write must match the returned record")

	unchanged, err := st.UpdateEvent(ev.ID, EventPatch{})
	require.NoError(t, err)
	assert.Equal(t, updated, unchanged)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	st := New()
	u := st.AddUser(NewUser{Username: "a", Email: "a@x.com"})

	users := st.Users()
	users[0].Username = "mutated"

	got, err := st.User(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Username)
}

func TestStore_Delete(t *testing.T) {
	st := New()
	a := st.AddUser(NewUser{Username: "a"})
	b := st.AddUser(NewUser{Username: "b"})

	removed, err := st.DeleteUser(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, removed)

	_, err = st.User(a.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, []User{b}, st.Users())
}

func TestStore_DeleteAllReturnsCount(t *testing.T) {
	st := New()
	for i := 0; i < 5; i++ {
		_, err := st.AddEvent(NewEvent{Title: fmt.Sprintf("e%d", i)})
		require.NoError(t, err)
	}

	assert.Equal(t, 5, st.DeleteAllEvents())
	assert.Empty(t, st.Events())
	assert.NotNil(t, st.Events(), "empty list, not nil")
	assert.Equal(t, 0, st.DeleteAllEvents())

	assert.Equal(t, 0, st.DeleteAllUsers())
	assert.Equal(t, 0, st.DeleteAllLocations())
	assert.Equal(t, 0, st.DeleteAllParticipants())
}

func TestStore_EachKindUsesItsOwnCollection(t *testing.T) {
	st := New()

	st.AddLocation(NewLocation{Name: "Hall"})
	_, err := st.AddParticipant(NewParticipant{UserID: "u1", EventID: "e1"})
	require.NoError(t, err)

	assert.Empty(t, st.Events())
	assert.Len(t, st.Locations(), 1)
	assert.Len(t, st.Participants(), 1)
	assert.Equal(t, map[string]int{
		KindUser: 0, KindEvent: 0, KindLocation: 1, KindParticipant: 1,
	}, st.Counts())
}

func TestStore_Relationships(t *testing.T) {
	st := New()
	ada := st.AddUser(NewUser{Username: "ada"})
	bob := st.AddUser(NewUser{Username: "bob"})
	hall := st.AddLocation(NewLocation{Name: "Hall"})

	e1, _ := st.AddEvent(NewEvent{Title: "one", UserID: ada.ID, LocationID: hall.ID})
	e2, _ := st.AddEvent(NewEvent{Title: "two", UserID: bob.ID, LocationID: hall.ID})
	e3, _ := st.AddEvent(NewEvent{Title: "three", UserID: ada.ID, LocationID: "elsewhere"})

	p1, _ := st.AddParticipant(NewParticipant{UserID: bob.ID, EventID: e1.ID})
	p2, _ := st.AddParticipant(NewParticipant{UserID: ada.ID, EventID: e1.ID})
	st.AddParticipant(NewParticipant{UserID: ada.ID, EventID: e2.ID})

	assert.Equal(t, []Event{e1, e3}, st.EventsByUser(ada.ID))
	assert.Equal(t, []Event{e1, e2}, st.EventsByLocation(hall.ID))
	assert.Equal(t, []Participant{p1, p2}, st.ParticipantsByEvent(e1.ID))
	assert.Len(t, st.ParticipantsByUser(ada.ID), 2)
	assert.Empty(t, st.EventsByUser("ghost"))
	assert.NotNil(t, st.EventsByUser("ghost"))
}

func TestStore_DanglingReferencesTolerated(t *testing.T) {
	st := New()
	u := st.AddUser(NewUser{Username: "owner"})
	ev, err := st.AddEvent(NewEvent{Title: "orphan-to-be", UserID: u.ID})
	require.NoError(t, err)

	_, err = st.DeleteUser(u.ID)
	require.NoError(t, err)

	stored, err := st.Event(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.UserID)

	_, err = st.User(stored.UserID)
	assert.True(t, errors.IsNotFound(err))
}

func TestStore_StrictReferences(t *testing.T) {
	st := New(WithStrictReferences(true))
	u := st.AddUser(NewUser{Username: "ada"})
	l := st.AddLocation(NewLocation{Name: "Hall"})

	_, err := st.AddEvent(NewEvent{Title: "bad", UserID: "ghost", LocationID: l.ID})
	nf, ok := errors.AsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, KindUser, nf.Kind)

	_, err = st.AddEvent(NewEvent{Title: "bad", UserID: u.ID, LocationID: "nowhere"})
	nf, ok = errors.AsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, KindLocation, nf.Kind)
	assert.Empty(t, st.Events())

	ev, err := st.AddEvent(NewEvent{Title: "good", UserID: u.ID, LocationID: l.ID})
	require.NoError(t, err)

	_, err = st.UpdateEvent(ev.ID, EventPatch{UserID: strPtr("ghost")})
	assert.True(t, errors.IsNotFound(err))

	_, err = st.UpdateEvent(ev.ID, EventPatch{Title: strPtr("renamed")})
	require.NoError(t, err)

	_, err = st.AddParticipant(NewParticipant{UserID: u.ID, EventID: "missing"})
	nf, ok = errors.AsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, KindEvent, nf.Kind)

	p, err := st.AddParticipant(NewParticipant{UserID: u.ID, EventID: ev.ID})
	require.NoError(t, err)
	_, err = st.UpdateParticipant(p.ID, ParticipantPatch{EventID: strPtr("missing")})
	assert.True(t, errors.IsNotFound(err))
}

func TestStore_ConcurrentWrites(t *testing.T) {
	st := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				u := st.AddUser(NewUser{Username: fmt.Sprintf("u%d-%d", i, j)})
				_, _ = st.UpdateUser(u.ID, UserPatch{Email: strPtr("e@x.com")})
				_ = st.Users()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, st.Users(), 500)
}
