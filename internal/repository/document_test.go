package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSink is an in-memory DocumentSink for store tests.
type memSink struct {
	mu      sync.Mutex
	docs    map[string][]byte
	saveErr error
	saves   int
}

func newMemSink() *memSink { return &memSink{docs: map[string][]byte{}} }

func (m *memSink) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.docs[name]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *memSink) Save(_ context.Context, name string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[name] = append([]byte(nil), body...)
	return nil
}

func (m *memSink) doc(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.docs[name])
}

func TestFileSink_LoadMissing(t *testing.T) {
	sink := NewFileSink(t.TempDir())
	_, err := sink.Load(context.Background(), AppDocument)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestFileSink_SaveThenLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	sink := NewFileSink(dir)
	ctx := context.Background()

	require.NoError(t, sink.Save(ctx, SecureDocument, []byte(`{"users": []}`)))
	require.NoError(t, sink.Save(ctx, SecureDocument, []byte(`{"users": [1]}`)))

	got, err := sink.Load(ctx, SecureDocument)
	require.NoError(t, err)
	assert.JSONEq(t, `{"users": [1]}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must be cleaned up")
	assert.Equal(t, "secure-data.json", entries[0].Name())
}

func setupSQLSink(t *testing.T, cb *gobreaker.CircuitBreaker) (sqlmock.Sqlmock, *SQLSink) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewSQLSink(db, cb)
}

func TestSQLSink_SaveUpserts(t *testing.T) {
	mock, sink := setupSQLSink(t, nil)

	mock.ExpectExec(`INSERT INTO documents \(name, body, updated_at\)`).
		WithArgs(AppDocument, `{"posts":[]}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, sink.Save(context.Background(), AppDocument, []byte(`{"posts":[]}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSink_LoadFound(t *testing.T) {
	mock, sink := setupSQLSink(t, nil)

	mock.ExpectQuery(`SELECT body FROM documents WHERE name = \?`).
		WithArgs(SecureDocument).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(`{"users":[]}`))

	got, err := sink.Load(context.Background(), SecureDocument)
	require.NoError(t, err)
	assert.Equal(t, `{"users":[]}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSink_LoadMissingDoesNotTripBreaker(t *testing.T) {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "test",
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	mock, sink := setupSQLSink(t, cb)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`SELECT body FROM documents`).
			WithArgs(AppDocument).
			WillReturnRows(sqlmock.NewRows([]string{"body"}))
	}

	for i := 0; i < 2; i++ {
		_, err := sink.Load(context.Background(), AppDocument)
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSink_BreakerOpensAfterFailures(t *testing.T) {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "test",
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
	})
	mock, sink := setupSQLSink(t, cb)

	down := errors.New("connection refused")
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`INSERT INTO documents`).WillReturnError(down)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, sink.Save(ctx, AppDocument, []byte(`{}`)), down)
	}
	err := sink.Save(ctx, AppDocument, []byte(`{}`))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMultiSink_SavesEverywhereLoadsFromFirst(t *testing.T) {
	primary, mirror := newMemSink(), newMemSink()
	mirror.saveErr = errors.New("mirror down")
	multi := NewMultiSink(primary, mirror)
	ctx := context.Background()

	err := multi.Save(ctx, AppDocument, []byte(`{"a":1}`))
	assert.ErrorContains(t, err, "mirror down")
	assert.Equal(t, 1, mirror.saves)

	got, err := multi.Load(ctx, AppDocument)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestMultiSink_Empty(t *testing.T) {
	_, err := NewMultiSink().Load(context.Background(), AppDocument)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
