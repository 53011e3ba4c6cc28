package service

import (
	"context"

	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/repository"
)

// CacheInvalidator drops cached public responses after a content change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// ContentService wraps the content store for posts, photos, classes and
// site settings and flushes the public response cache after each write.
type ContentService struct {
	store *repository.ContentStore
	cache CacheInvalidator
}

func NewContentService(store *repository.ContentStore, cache CacheInvalidator) *ContentService {
	return &ContentService{store: store, cache: cache}
}

func (s *ContentService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// Posts lists posts visible to the viewer.  Board entries addressed to a
// single parent (daily notes) are shown only to that parent and to staff.
func (s *ContentService) Posts(viewerID string, viewerRole model.Role) []model.Post {
	all := s.store.Posts()
	out := make([]model.Post, 0, len(all))
	for _, p := range all {
		if p.ParentID != "" && viewerRole == model.RoleParent && p.ParentID != viewerID {
			continue
		}
		if p.ParentID != "" && viewerRole == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Post looks a single post up by id.
func (s *ContentService) Post(id int64) (model.Post, error) {
	for _, p := range s.store.Posts() {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Post{}, repository.ErrNotFound
}

func (s *ContentService) AddPost(ctx context.Context, p model.Post) (model.Post, error) {
	out, err := s.store.AddPost(ctx, p)
	if err == nil {
		s.invalidate(ctx)
	}
	return out, err
}

func (s *ContentService) UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (model.Post, error) {
	out, err := s.store.UpdatePost(ctx, id, patch)
	if err == nil {
		s.invalidate(ctx)
	}
	return out, err
}

func (s *ContentService) DeletePost(ctx context.Context, id int64) error {
	err := s.store.DeletePost(ctx, id)
	if err == nil {
		s.invalidate(ctx)
	}
	return err
}

func (s *ContentService) AlbumPhotos() []model.AlbumPhoto { return s.store.AlbumPhotos() }

func (s *ContentService) AddAlbumPhoto(ctx context.Context, p model.AlbumPhoto) (model.AlbumPhoto, error) {
	out, err := s.store.AddAlbumPhoto(ctx, p)
	if err == nil {
		s.invalidate(ctx)
	}
	return out, err
}

func (s *ContentService) DeleteAlbumPhoto(ctx context.Context, id int64) error {
	err := s.store.DeleteAlbumPhoto(ctx, id)
	if err == nil {
		s.invalidate(ctx)
	}
	return err
}

func (s *ContentService) Classes() []model.ClassData { return s.store.Classes() }

func (s *ContentService) AddClass(ctx context.Context, c model.ClassData) (model.ClassData, error) {
	out, err := s.store.AddClass(ctx, c)
	if err == nil {
		s.invalidate(ctx)
	}
	return out, err
}

func (s *ContentService) UpdateClass(ctx context.Context, id string, patch model.ClassPatch) (model.ClassData, error) {
	out, err := s.store.UpdateClass(ctx, id, patch)
	if err == nil {
		s.invalidate(ctx)
	}
	return out, err
}

func (s *ContentService) DeleteClass(ctx context.Context, id string) error {
	err := s.store.DeleteClass(ctx, id)
	if err == nil {
		s.invalidate(ctx)
	}
	return err
}

func (s *ContentService) SiteSettings() model.SiteSettings { return s.store.SiteSettings() }

func (s *ContentService) UpdateSiteSettings(ctx context.Context, settings model.SiteSettings) model.SiteSettings {
	out := s.store.UpdateSiteSettings(ctx, settings)
	s.invalidate(ctx)
	return out
}
