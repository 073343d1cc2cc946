package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventgraph/errors"
)

func TestDefaultFixture(t *testing.T) {
	f, err := DefaultFixture()
	require.NoError(t, err)

	assert.NotEmpty(t, f.Users)
	assert.Len(t, f.Events, 5)
	assert.NotEmpty(t, f.Locations)
	assert.NotEmpty(t, f.Participants)

	st := New()
	st.Seed(f)
	for _, e := range st.Events() {
		_, err := st.User(e.UserID)
		assert.NoError(t, err, "fixture event %s has a dangling user", e.ID)
		_, err = st.Location(e.LocationID)
		assert.NoError(t, err, "fixture event %s has a dangling location", e.ID)
	}
}

func TestLoadFixture_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - id: u1
    username: ada
    email: ada@example.com
events:
  - id: e1
    title: Kickoff
    location_id: l1
    user_id: u1
locations:
  - id: l1
    name: Hall
participants:
  - id: p1
    user_id: u1
    event_id: e1
`), 0o600))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	require.Len(t, f.Events, 1)
	assert.Equal(t, "l1", f.Events[0].LocationID)
	assert.Equal(t, "u1", f.Events[0].UserID)
	assert.Equal(t, "e1", f.Participants[0].EventID)
}

func TestDecodeFixture_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"unsupported extension", `{}`, ".toml"},
		{"malformed json", `{"users": [`, ".json"},
		{"duplicate ids", `{"users": [{"id": "a"}, {"id": "a"}]}`, ".json"},
		{"empty id", `{"locations": [{"name": "x"}]}`, ".json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFixture([]byte(tt.data), tt.ext)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestOpen(t *testing.T) {
	st, err := Open(Config{})
	require.NoError(t, err)
	assert.Equal(t, 5, st.Counts()[KindEvent])

	_, err = Open(Config{FixturePath: "seed.toml"})
	assert.True(t, errors.IsInvalid(err))

	_, err = Open(Config{FixturePath: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}
