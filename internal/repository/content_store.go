package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/daycare-center/internal/metrics"
	"github.com/iliyamo/daycare-center/internal/model"
)

type appData struct {
	Posts              []model.Post            `json:"posts"`
	AlbumPhotos        []model.AlbumPhoto      `json:"albumPhotos"`
	Classes            []model.ClassData       `json:"classes"`
	RegisteredChildren []model.RegisteredChild `json:"registeredChildren"`
	SiteSettings       model.SiteSettings      `json:"siteSettings"`
}

func defaultAppData() appData {
	return appData{
		Posts: []model.Post{
			{ID: 1, Title: "[공지] 12월 겨울방학 안내", Content: "겨울방학 기간은 12월 25일부터 1월 5일까지입니다.", Author: "원장님", Date: "2024-12-01", Type: model.PostNotice},
			{ID: 2, Title: "[행사] 크리스마스 산타 잔치", Content: "아이들이 기다리던 산타 잔치가 열립니다!", Author: "관리자", Date: "2024-11-28", Type: model.PostEvent},
		},
		AlbumPhotos: []model.AlbumPhoto{
			{ID: 1, URL: "https://images.unsplash.com/photo-1503454537195-1dcabb73ffb9?auto=format&fit=crop&q=80", Title: "가을 소풍", Date: "2024-10-15"},
		},
		Classes:            []model.ClassData{},
		RegisteredChildren: []model.RegisteredChild{},
		SiteSettings: model.SiteSettings{
			Address:           "서울 강서구 양천로75길 57 현대1차아파트 104동 102호",
			Phone:             "02-2659-7977",
			Email:             "yhee@naver.com",
			MapLink:           "https://map.naver.com/p/search/서울 강서구 양천로75길 57",
			AboutDescription:  "아이들의 꿈이 자라는 따뜻한 둥지, 코코베베어린이집입니다.",
			History:           []model.HistoryEntry{},
			GreetingTitle:     "아이들의 꿈이 자라는 따뜻한 둥지",
			GreetingMessage:   "안녕하세요, 코코베베어린이집입니다.",
			GreetingSignature: "코코베베어린이집 박윤희 원장",
			Philosophy:        []model.Philosophy{},
			FacilityImages:    []model.FacilityImage{},
		},
	}
}

// ContentStore owns posts, album photos, classes, the registered
// children roster and the site settings.  Like SecureStore it is a
// single owner guarded by one mutex and rewrites its whole document on
// every mutation.  Getters return copies.
type ContentStore struct {
	mu   sync.Mutex
	data appData
	sink DocumentSink
	log  *zap.Logger
	now  func() time.Time
}

// NewContentStore loads the app document, seeding defaults when it does
// not exist yet.
func NewContentStore(ctx context.Context, sink DocumentSink, log *zap.Logger) (*ContentStore, error) {
	s := &ContentStore{sink: sink, log: log, now: time.Now}
	body, err := sink.Load(ctx, AppDocument)
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		s.data = defaultAppData()
		log.Info("app document not found, seeded defaults")
		s.persist(ctx)
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", AppDocument, err)
	default:
		if err := json.Unmarshal(body, &s.data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", AppDocument, err)
		}
	}
	return s, nil
}

func (s *ContentStore) persist(ctx context.Context) {
	body, err := json.MarshalIndent(s.data, "", "  ")
	if err == nil {
		err = s.sink.Save(ctx, AppDocument, body)
	}
	if err != nil {
		perr := &PersistenceError{Document: AppDocument, Err: err}
		metrics.PersistenceFailures.WithLabelValues(AppDocument).Inc()
		s.log.Error("persistence failed", zap.Error(perr))
	}
}

func (s *ContentStore) today() string { return s.now().UTC().Format("2006-01-02") }

// ---- posts ----

func (s *ContentStore) Posts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Post(nil), s.data.Posts...)
}

// AddPost assigns id = max(existing)+1 and today's date.
func (s *ContentStore) AddPost(ctx context.Context, p model.Post) (model.Post, error) {
	if strings.TrimSpace(p.Title) == "" {
		return model.Post{}, &ValidationError{Field: "title", Reason: "required"}
	}
	if p.Type == "" {
		p.Type = model.PostNotice
	}
	if !p.Type.Valid() {
		return model.Post{}, &ValidationError{Field: "type", Reason: "unknown post type " + string(p.Type)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var maxID int64
	for _, existing := range s.data.Posts {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	p.ID = maxID + 1
	p.Date = s.today()
	s.data.Posts = append(s.data.Posts, p)
	s.persist(ctx)
	return p, nil
}

func (s *ContentStore) UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (model.Post, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return model.Post{}, &ValidationError{Field: "type", Reason: "unknown post type " + string(*patch.Type)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Posts {
		if s.data.Posts[i].ID != id {
			continue
		}
		p := &s.data.Posts[i]
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Content != nil {
			p.Content = *patch.Content
		}
		if patch.Author != nil {
			p.Author = *patch.Author
		}
		if patch.Type != nil {
			p.Type = *patch.Type
		}
		if patch.ClassID != nil {
			p.ClassID = *patch.ClassID
		}
		if patch.ParentID != nil {
			p.ParentID = *patch.ParentID
		}
		if patch.Images != nil {
			p.Images = patch.Images
		}
		s.persist(ctx)
		return *p, nil
	}
	return model.Post{}, ErrNotFound
}

func (s *ContentStore) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.data.Posts {
		if p.ID == id {
			s.data.Posts = append(s.data.Posts[:i], s.data.Posts[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// ---- album photos ----

func (s *ContentStore) AlbumPhotos() []model.AlbumPhoto {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AlbumPhoto(nil), s.data.AlbumPhotos...)
}

func (s *ContentStore) AddAlbumPhoto(ctx context.Context, p model.AlbumPhoto) (model.AlbumPhoto, error) {
	if strings.TrimSpace(p.URL) == "" {
		return model.AlbumPhoto{}, &ValidationError{Field: "url", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var maxID int64
	for _, existing := range s.data.AlbumPhotos {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	p.ID = maxID + 1
	p.Date = s.today()
	s.data.AlbumPhotos = append(s.data.AlbumPhotos, p)
	s.persist(ctx)
	return p, nil
}

func (s *ContentStore) DeleteAlbumPhoto(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.data.AlbumPhotos {
		if p.ID == id {
			s.data.AlbumPhotos = append(s.data.AlbumPhotos[:i], s.data.AlbumPhotos[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// ---- classes ----

func (s *ContentStore) Classes() []model.ClassData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ClassData(nil), s.data.Classes...)
}

// AddClass stores c under a fresh uuid unless the caller supplied an id
// (seeded rooms use readable ids such as "faith1").
func (s *ContentStore) AddClass(ctx context.Context, c model.ClassData) (model.ClassData, error) {
	if strings.TrimSpace(c.Name) == "" {
		return model.ClassData{}, &ValidationError{Field: "name", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for _, existing := range s.data.Classes {
		if existing.ID == c.ID {
			return model.ClassData{}, &ValidationError{Field: "id", Reason: "class " + c.ID + " already exists"}
		}
	}
	if c.Schedule == nil {
		c.Schedule = []model.ScheduleItem{}
	}
	s.data.Classes = append(s.data.Classes, c)
	s.persist(ctx)
	return c, nil
}

func (s *ContentStore) UpdateClass(ctx context.Context, id string, patch model.ClassPatch) (model.ClassData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Classes {
		if s.data.Classes[i].ID != id {
			continue
		}
		c := &s.data.Classes[i]
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Age != nil {
			c.Age = *patch.Age
		}
		if patch.Teacher != nil {
			c.Teacher = *patch.Teacher
		}
		if patch.Color != nil {
			c.Color = *patch.Color
		}
		if patch.Description != nil {
			c.Description = *patch.Description
		}
		if patch.Schedule != nil {
			c.Schedule = patch.Schedule
		}
		s.persist(ctx)
		return *c, nil
	}
	return model.ClassData{}, ErrNotFound
}

func (s *ContentStore) DeleteClass(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.data.Classes {
		if c.ID == id {
			s.data.Classes = append(s.data.Classes[:i], s.data.Classes[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// ---- registered children ----

func cloneChild(c model.RegisteredChild) model.RegisteredChild {
	if c.ParentID != nil {
		id := *c.ParentID
		c.ParentID = &id
	}
	return c
}

// RegisteredChildren returns the roster in insertion order.  The copies
// share no pointers with the store.
func (s *ContentStore) RegisteredChildren() []model.RegisteredChild {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RegisteredChild, len(s.data.RegisteredChildren))
	for i, c := range s.data.RegisteredChildren {
		out[i] = cloneChild(c)
	}
	return out
}

func (s *ContentStore) AddRegisteredChild(ctx context.Context, c model.RegisteredChild) (model.RegisteredChild, error) {
	if strings.TrimSpace(c.Name) == "" {
		return model.RegisteredChild{}, &ValidationError{Field: "name", Reason: "required"}
	}
	if c.BirthDate == "" {
		return model.RegisteredChild{}, &ValidationError{Field: "birthDate", Reason: "required"}
	}
	c = cloneChild(c)
	c.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.RegisteredChildren = append(s.data.RegisteredChildren, c)
	s.persist(ctx)
	return cloneChild(c), nil
}

// UpdateRegisteredChild applies patch.  A ParentID of "" removes the link.
func (s *ContentStore) UpdateRegisteredChild(ctx context.Context, id string, patch model.RegisteredChildPatch) (model.RegisteredChild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.RegisteredChildren {
		if s.data.RegisteredChildren[i].ID != id {
			continue
		}
		c := &s.data.RegisteredChildren[i]
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.BirthDate != nil {
			c.BirthDate = *patch.BirthDate
		}
		if patch.ClassID != nil {
			c.ClassID = *patch.ClassID
		}
		if patch.ParentID != nil {
			if *patch.ParentID == "" {
				c.ParentID = nil
			} else {
				pid := *patch.ParentID
				c.ParentID = &pid
			}
		}
		s.persist(ctx)
		return cloneChild(*c), nil
	}
	return model.RegisteredChild{}, ErrNotFound
}

// LinkRegisteredChild sets the parent of an unlinked child.  It refuses
// to overwrite an existing link and reports false in that case.
func (s *ContentStore) LinkRegisteredChild(ctx context.Context, childID, parentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.RegisteredChildren {
		c := &s.data.RegisteredChildren[i]
		if c.ID != childID {
			continue
		}
		if c.Linked() {
			return false, nil
		}
		pid := parentID
		c.ParentID = &pid
		s.persist(ctx)
		return true, nil
	}
	return false, ErrNotFound
}

func (s *ContentStore) DeleteRegisteredChild(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.data.RegisteredChildren {
		if c.ID == id {
			s.data.RegisteredChildren = append(s.data.RegisteredChildren[:i], s.data.RegisteredChildren[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// ApplyLinks sets the parent id of each listed child that is still
// unlinked and persists once.  Links to children that were deleted or
// linked in the meantime are skipped.  It returns the ids of the
// children that were linked.
func (s *ContentStore) ApplyLinks(ctx context.Context, links map[string]string) []string {
	if len(links) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var applied []string
	for i := range s.data.RegisteredChildren {
		c := &s.data.RegisteredChildren[i]
		parentID, ok := links[c.ID]
		if !ok || c.Linked() {
			continue
		}
		pid := parentID
		c.ParentID = &pid
		applied = append(applied, c.ID)
	}
	if len(applied) > 0 {
		s.persist(ctx)
	}
	return applied
}

// ---- site settings ----

func (s *ContentStore) SiteSettings() model.SiteSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SiteSettings
}

// UpdateSiteSettings replaces the settings wholesale.
func (s *ContentStore) UpdateSiteSettings(ctx context.Context, settings model.SiteSettings) model.SiteSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SiteSettings = settings
	s.persist(ctx)
	return s.data.SiteSettings
}
