package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/daycare-center/internal/model"
)

func newContentStore(t *testing.T, sink DocumentSink) *ContentStore {
	t.Helper()
	s, err := NewContentStore(context.Background(), sink, zap.NewNop())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 3, 2, 23, 30, 0, 0, time.UTC) }
	return s
}

func TestContentStore_SeedsDefaults(t *testing.T) {
	sink := newMemSink()
	s := newContentStore(t, sink)

	assert.Len(t, s.Posts(), 2)
	assert.Len(t, s.AlbumPhotos(), 1)
	assert.Empty(t, s.RegisteredChildren())
	assert.Equal(t, "02-2659-7977", s.SiteSettings().Phone)
	assert.Contains(t, sink.doc(AppDocument), `"registeredChildren": []`)
}

func TestContentStore_AddPostAssignsNextIDAndDate(t *testing.T) {
	s := newContentStore(t, newMemSink())
	ctx := context.Background()

	p, err := s.AddPost(ctx, model.Post{Title: "식단표", Content: "3월", Type: model.PostMenu})
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, "2025-03-02", p.Date)

	require.NoError(t, s.DeletePost(ctx, 1))
	next, err := s.AddPost(ctx, model.Post{Title: "알림장"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID)
	assert.Equal(t, model.PostNotice, next.Type)

	_, err = s.AddPost(ctx, model.Post{Title: "x", Type: "blog"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestContentStore_UpdatePost(t *testing.T) {
	s := newContentStore(t, newMemSink())
	ctx := context.Background()

	title := "[공지] 변경"
	p, err := s.UpdatePost(ctx, 1, model.PostPatch{Title: &title, Images: []string{"a.png"}})
	require.NoError(t, err)
	assert.Equal(t, title, p.Title)
	assert.Equal(t, "원장님", p.Author)
	assert.Equal(t, []string{"a.png"}, p.Images)

	_, err = s.UpdatePost(ctx, 99, model.PostPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePost(ctx, 99), ErrNotFound)
}

func TestContentStore_AlbumPhotos(t *testing.T) {
	s := newContentStore(t, newMemSink())
	ctx := context.Background()

	p, err := s.AddAlbumPhoto(ctx, model.AlbumPhoto{URL: "https://example.com/a.jpg", Title: "봄"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.ID)
	assert.Equal(t, "2025-03-02", p.Date)

	require.NoError(t, s.DeleteAlbumPhoto(ctx, p.ID))
	assert.ErrorIs(t, s.DeleteAlbumPhoto(ctx, p.ID), ErrNotFound)

	_, err = s.AddAlbumPhoto(ctx, model.AlbumPhoto{Title: "no url"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestContentStore_Classes(t *testing.T) {
	s := newContentStore(t, newMemSink())
	ctx := context.Background()

	faith, err := s.AddClass(ctx, model.ClassData{ID: "faith1", Name: "믿음1반"})
	require.NoError(t, err)
	assert.Equal(t, "faith1", faith.ID)
	assert.NotNil(t, faith.Schedule)

	generated, err := s.AddClass(ctx, model.ClassData{Name: "사랑반"})
	require.NoError(t, err)
	assert.Len(t, generated.ID, 36)

	_, err = s.AddClass(ctx, model.ClassData{ID: "faith1", Name: "dup"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	color := "#ffcc00"
	updated, err := s.UpdateClass(ctx, "faith1", model.ClassPatch{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, color, updated.Color)
	assert.Equal(t, "믿음1반", updated.Name)

	require.NoError(t, s.DeleteClass(ctx, generated.ID))
	assert.ErrorIs(t, s.DeleteClass(ctx, generated.ID), ErrNotFound)
	assert.Len(t, s.Classes(), 1)
}

func TestContentStore_RegisteredChildrenAreCopies(t *testing.T) {
	s := newContentStore(t, newMemSink())
	ctx := context.Background()

	c, err := s.AddRegisteredChild(ctx, model.RegisteredChild{Name: "김민준", BirthDate: "2022-03-15", ClassID: "faith1"})
	require.NoError(t, err)

	linked, err := s.LinkRegisteredChild(ctx, c.ID, "p1")
	require.NoError(t, err)
	assert.True(t, linked)

	list := s.RegisteredChildren()
	*list[0].ParentID = "tampered"
	assert.Equal(t, "p1", *s.RegisteredChildren()[0].ParentID)
}

func TestContentStore_LinkNeverOverwrites(t *testing.T) {
	s := newContentStore(t, newMemSink())
	ctx := context.Background()
	c, err := s.AddRegisteredChild(ctx, model.RegisteredChild{Name: "김민준", BirthDate: "2022-03-15"})
	require.NoError(t, err)

	ok, err := s.LinkRegisteredChild(ctx, c.ID, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.LinkRegisteredChild(ctx, c.ID, "p2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "p1", *s.RegisteredChildren()[0].ParentID)

	_, err = s.LinkRegisteredChild(ctx, "missing", "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContentStore_ApplyLinks(t *testing.T) {
	sink := newMemSink()
	s := newContentStore(t, sink)
	ctx := context.Background()
	a, _ := s.AddRegisteredChild(ctx, model.RegisteredChild{Name: "a", BirthDate: "2021-01-01"})
	b, _ := s.AddRegisteredChild(ctx, model.RegisteredChild{Name: "b", BirthDate: "2021-01-01"})
	_, err := s.LinkRegisteredChild(ctx, b.ID, "existing")
	require.NoError(t, err)

	before := sink.saves
	applied := s.ApplyLinks(ctx, map[string]string{a.ID: "p1", b.ID: "p2", "gone": "p3"})
	assert.Equal(t, []string{a.ID}, applied)
	assert.Equal(t, before+1, sink.saves)

	kids := s.RegisteredChildren()
	assert.Equal(t, "p1", *kids[0].ParentID)
	assert.Equal(t, "existing", *kids[1].ParentID)

	assert.Empty(t, s.ApplyLinks(ctx, nil))
	assert.Equal(t, before+1, sink.saves)
}

func TestContentStore_UpdateRegisteredChildClearsLink(t *testing.T) {
	s := newContentStore(t, newMemSink())
	ctx := context.Background()
	pid := "p1"
	c, err := s.AddRegisteredChild(ctx, model.RegisteredChild{Name: "a", BirthDate: "2021-01-01", ParentID: &pid})
	require.NoError(t, err)
	require.True(t, c.Linked())

	empty := ""
	class := "love"
	got, err := s.UpdateRegisteredChild(ctx, c.ID, model.RegisteredChildPatch{ParentID: &empty, ClassID: &class})
	require.NoError(t, err)
	assert.False(t, got.Linked())
	assert.Equal(t, "love", got.ClassID)

	_, err = s.UpdateRegisteredChild(ctx, "missing", model.RegisteredChildPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.DeleteRegisteredChild(ctx, c.ID))
	assert.ErrorIs(t, s.DeleteRegisteredChild(ctx, c.ID), ErrNotFound)
}

func TestContentStore_SiteSettingsAndReload(t *testing.T) {
	sink := newMemSink()
	s := newContentStore(t, sink)
	ctx := context.Background()

	settings := s.SiteSettings()
	settings.Email = "hello@cocobebe.kr"
	s.UpdateSiteSettings(ctx, settings)

	reloaded := newContentStore(t, sink)
	assert.Equal(t, "hello@cocobebe.kr", reloaded.SiteSettings().Email)
}
