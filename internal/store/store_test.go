package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"depenses/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type note struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var testSchema = []Collection{
	{Name: "notes", Unique: []string{"title"}},
	{Name: "scratch"},
}

type StoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New(":memory:", testSchema)
	require.NoError(s.T(), s.store.Open(s.ctx), "failed to open test store")
}

func (s *StoreTestSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *StoreTestSuite) TestOpenIsIdempotent() {
	require.NoError(s.T(), s.store.Open(s.ctx))
	require.NoError(s.T(), s.store.Open(s.ctx))
}

func (s *StoreTestSuite) TestConcurrentOpenCollapses() {
	st := New(":memory:", testSchema)
	defer st.Close()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = st.Open(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(s.T(), err, "open %d failed", i)
	}
	_, err := st.Count(context.Background(), "notes")
	assert.NoError(s.T(), err)
}

func (s *StoreTestSuite) TestUseBeforeOpen() {
	st := New(":memory:", testSchema)
	_, err := st.Count(s.ctx, "notes")
	assert.ErrorIs(s.T(), err, models.ErrStoreUnavailable)
}

func (s *StoreTestSuite) TestInsertAssignsMonotonicKeys() {
	k1, err := s.store.Insert(s.ctx, "notes", note{Title: "first"})
	require.NoError(s.T(), err)
	k2, err := s.store.Insert(s.ctx, "notes", note{Title: "second"})
	require.NoError(s.T(), err)
	assert.Greater(s.T(), k2, k1, "keys must be monotonic")
}

func (s *StoreTestSuite) TestKeysNeverReused() {
	k1, err := s.store.Insert(s.ctx, "notes", note{Title: "gone"})
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.DeleteByKey(s.ctx, "notes", k1))

	k2, err := s.store.Insert(s.ctx, "notes", note{Title: "next"})
	require.NoError(s.T(), err)
	assert.Greater(s.T(), k2, k1, "deleted keys must not be reassigned")
}

func (s *StoreTestSuite) TestGetByKey() {
	key, err := s.store.Insert(s.ctx, "notes", note{Title: "milk", Body: "2L"})
	require.NoError(s.T(), err)

	rec, err := s.store.GetByKey(s.ctx, "notes", key)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), key, rec.Key)

	var got note
	require.NoError(s.T(), json.Unmarshal(rec.Data, &got))
	assert.Equal(s.T(), "milk", got.Title)
	assert.Equal(s.T(), "2L", got.Body)
}

func (s *StoreTestSuite) TestGetByKeyAbsent() {
	_, err := s.store.GetByKey(s.ctx, "notes", 9999)
	assert.ErrorIs(s.T(), err, models.ErrNotFound)
}

func (s *StoreTestSuite) TestFindUnique() {
	key, err := s.store.Insert(s.ctx, "notes", note{Title: "unique-one"})
	require.NoError(s.T(), err)
	_, err = s.store.Insert(s.ctx, "notes", note{Title: "unique-two"})
	require.NoError(s.T(), err)

	rec, err := s.store.FindUnique(s.ctx, "notes", "title", "unique-one")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), key, rec.Key)

	_, err = s.store.FindUnique(s.ctx, "notes", "title", "missing")
	assert.ErrorIs(s.T(), err, models.ErrNotFound)
}

func (s *StoreTestSuite) TestFindUniqueUndeclaredField() {
	_, err := s.store.FindUnique(s.ctx, "notes", "body", "whatever")
	assert.Error(s.T(), err, "lookup on a non-unique field must be rejected")
}

func (s *StoreTestSuite) TestUniqueConstraintViolation() {
	_, err := s.store.Insert(s.ctx, "notes", note{Title: "taken"})
	require.NoError(s.T(), err)

	_, err = s.store.Insert(s.ctx, "notes", note{Title: "taken"})
	require.Error(s.T(), err)

	var writeErr *models.WriteError
	require.ErrorAs(s.T(), err, &writeErr, "commit failure must surface as WriteError")
	assert.True(s.T(), IsUniqueConstraint(err))

	n, err := s.store.Count(s.ctx, "notes")
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, n, "aborted insert must leave no record")
}

func (s *StoreTestSuite) TestScanAll() {
	for _, title := range []string{"a", "b", "c"} {
		_, err := s.store.Insert(s.ctx, "notes", note{Title: title})
		require.NoError(s.T(), err)
	}
	records, err := s.store.ScanAll(s.ctx, "notes")
	require.NoError(s.T(), err)
	assert.Len(s.T(), records, 3)
}

func (s *StoreTestSuite) TestScanAllEmpty() {
	records, err := s.store.ScanAll(s.ctx, "scratch")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), records)
}

func (s *StoreTestSuite) TestDeleteByKeyIsIdempotent() {
	key, err := s.store.Insert(s.ctx, "notes", note{Title: "temp"})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.DeleteByKey(s.ctx, "notes", key))
	assert.NoError(s.T(), s.store.DeleteByKey(s.ctx, "notes", key), "second delete must succeed")
	assert.NoError(s.T(), s.store.DeleteByKey(s.ctx, "notes", 12345), "deleting an absent key must succeed")
}

func (s *StoreTestSuite) TestCount() {
	n, err := s.store.Count(s.ctx, "notes")
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 0, n)

	_, err = s.store.Insert(s.ctx, "notes", note{Title: "one"})
	require.NoError(s.T(), err)

	n, err = s.store.Count(s.ctx, "notes")
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, n)
}

func (s *StoreTestSuite) TestUnknownCollection() {
	_, err := s.store.Insert(s.ctx, "nope", note{Title: "x"})
	assert.Error(s.T(), err)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestDurabilityAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	st := New(path, testSchema)
	require.NoError(t, st.Open(ctx))
	key, err := st.Insert(ctx, "notes", note{Title: "persisted", Body: "still here"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// A fresh store over the same file must see the committed record.
	reopened := New(path, testSchema)
	require.NoError(t, reopened.Open(ctx))
	defer reopened.Close()

	rec, err := reopened.GetByKey(ctx, "notes", key)
	require.NoError(t, err)

	var got note
	require.NoError(t, json.Unmarshal(rec.Data, &got))
	assert.Equal(t, "persisted", got.Title)
	assert.Equal(t, "still here", got.Body)
}

func TestSchemaVersionMismatchWipes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	st := New(path, testSchema)
	require.NoError(t, st.Open(ctx))
	_, err := st.Insert(ctx, "notes", note{Title: "doomed"})
	require.NoError(t, err)

	// Simulate an older on-disk schema version.
	db, err := st.handle()
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened := New(path, testSchema)
	require.NoError(t, reopened.Open(ctx))
	defer reopened.Close()

	n, err := reopened.Count(ctx, "notes")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "version mismatch must recreate collections empty")
}
