package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "data", "user_mappings.json"))
	require.NoError(t, err)

	return s
}

func TestNewCreatesEmptyFile(t *testing.T) {
	s := setupStore(t)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	records, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRoundTrip(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, s.Put("id1", "Jane", "f.yaml", map[string]any{}))

	reopened, err := New(s.Path())
	require.NoError(t, err)

	rec, err := reopened.Get("id1")
	require.NoError(t, err)
	assert.Equal(t, Record{ExternalID: "id1", DisplayName: "Jane", Filename: "f.yaml", Attributes: map[string]any{}}, rec)
}

func TestPutReplacesWholeRecord(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, s.Put("id1", "Jane", "a.yaml", map[string]any{"email": "jane@example.com", "role": "dev"}))
	require.NoError(t, s.Put("id1", "Jane Doe", "b.yaml", map[string]any{"team": "ops"}))

	rec, err := s.Get("id1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.DisplayName)
	assert.Equal(t, "b.yaml", rec.Filename)
	assert.Equal(t, map[string]any{"team": "ops"}, rec.Attributes)
	assert.Equal(t, "ops", rec.Attr("team"))
	assert.Empty(t, rec.Attr("email"))

	records, err := s.List()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestGetMissing(t *testing.T) {
	s := setupStore(t)

	_, err := s.Get("missing")
	require.ErrorIs(t, err, ErrRecordNotFound)

	ok, err := s.Exists("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutEmptyID(t *testing.T) {
	s := setupStore(t)
	require.ErrorIs(t, s.Put("", "Jane", "f.yaml", nil), ErrEmptyExternalID)
}

func TestDelete(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, s.Put("id1", "Jane", "f.yaml", nil))

	existed, err := s.Delete("id1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete("id1")
	require.NoError(t, err)
	assert.False(t, existed)

	ok, err := s.Exists("id1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListKeepsInsertionOrder(t *testing.T) {
	s := setupStore(t)

	for _, id := range []string{"zeta", "alpha", "mike"} {
		require.NoError(t, s.Put(id, id, id+".yaml", nil))
	}

	// replacing keeps the original position
	require.NoError(t, s.Put("alpha", "Alpha", "alpha.yaml", nil))

	records, err := s.List()
	require.NoError(t, err)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ExternalID)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mike"}, ids)
}

func TestFind(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, s.Put("id1", "Jane Example", "entraid_human_jane_example.yaml", nil))
	require.NoError(t, s.Put("id2", "JANE EXAMPLE", "other.yaml", nil))
	require.NoError(t, s.Put("id3", "Bob", "entraid_human_bob.yaml", nil))

	testCases := []struct {
		name    string
		find    func() (Record, error)
		wantID  string
		wantErr error
	}{
		{
			name:   "display name case insensitive first match",
			find:   func() (Record, error) { return s.FindByDisplayName("jane example") },
			wantID: "id1",
		},
		{
			name:    "display name missing",
			find:    func() (Record, error) { return s.FindByDisplayName("alice") },
			wantErr: ErrRecordNotFound,
		},
		{
			name:   "filename exact",
			find:   func() (Record, error) { return s.FindByFilename("entraid_human_bob.yaml") },
			wantID: "id3",
		},
		{
			name:    "filename is case sensitive",
			find:    func() (Record, error) { return s.FindByFilename("ENTRAID_HUMAN_BOB.yaml") },
			wantErr: ErrRecordNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := tc.find()
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantID, rec.ExternalID)
		})
	}
}

func TestConcurrentPuts(t *testing.T) {
	s := setupStore(t)

	const n = 50

	var wg sync.WaitGroup

	errs := make(chan error, n)

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id := fmt.Sprintf("id-%02d", i)
			errs <- s.Put(id, "User "+id, id+".yaml", map[string]any{"n": i})
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	reopened, err := New(s.Path())
	require.NoError(t, err)

	records, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, records, n)

	seen := make(map[string]bool, n)
	for _, r := range records {
		seen[r.ExternalID] = true
	}

	assert.Len(t, seen, n)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConcurrentPutsAcrossInstances(t *testing.T) {
	first := setupStore(t)

	second, err := New(first.Path())
	require.NoError(t, err)

	const n = 40

	var wg sync.WaitGroup

	errs := make(chan error, n)

	for i := range n {
		wg.Add(1)

		s := first
		if i%2 == 1 {
			s = second
		}

		go func() {
			defer wg.Done()

			id := fmt.Sprintf("id-%02d", i)
			errs <- s.Put(id, "User "+id, id+".yaml", nil)
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	records, err := first.List()
	require.NoError(t, err)
	assert.Len(t, records, n)
}

func TestFileFormat(t *testing.T) {
	s := setupStore(t)

	require.NoError(t, s.Put("id-1", "Zoë <Müller>", "entraid_human_zo_mller.yaml", map[string]any{
		"role":         "dev",
		"email":        "zoe@example.com",
		"display_name": "ignored",
	}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	want := `{
  "id-1": {
    "external_id": "id-1",
    "display_name": "Zoë <Müller>",
    "filename": "entraid_human_zo_mller.yaml",
    "email": "zoe@example.com",
    "role": "dev"
  }
}
`
	assert.Equal(t, want, string(data))
}

func TestCorruptFile(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "not json"},
		{name: "array", content: "[]"},
		{name: "truncated", content: `{"id1": {"external_id": "id1"`},
		{name: "trailing data", content: `{} {}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "user_mappings.json")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))

			_, err := New(path)
			require.ErrorIs(t, err, ErrCorruptStore)

			// the file is never reset
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tc.content, string(data))
		})
	}
}

func TestObjectKeyIsAuthoritative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_mappings.json")
	content := `{"id1": {"external_id": "other", "display_name": "Jane", "filename": "f.yaml", "email": "j@e.com"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := New(path)
	require.NoError(t, err)

	rec, err := s.Get("id1")
	require.NoError(t, err)
	assert.Equal(t, "id1", rec.ExternalID)
	assert.Equal(t, "j@e.com", rec.Attr("email"))
}
