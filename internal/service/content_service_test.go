package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/daycare-center/internal/model"
)

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate(context.Context) { c.n++ }

func TestContentService_InvalidatesOnWrites(t *testing.T) {
	f := newFixture(t)
	inv := &countingInvalidator{}
	svc := NewContentService(f.content, inv)
	ctx := context.Background()

	p, err := svc.AddPost(ctx, model.Post{Title: "알림"})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePost(ctx, p.ID))
	assert.Error(t, svc.DeletePost(ctx, p.ID))
	svc.UpdateSiteSettings(ctx, svc.SiteSettings())

	assert.Equal(t, 3, inv.n, "failed writes do not flush")
}

func TestContentService_BoardPostsVisibility(t *testing.T) {
	f := newFixture(t)
	svc := NewContentService(f.content, nil)
	ctx := context.Background()

	_, err := svc.AddPost(ctx, model.Post{Title: "민준이 알림장", Type: model.PostBoard, ParentID: "p1"})
	require.NoError(t, err)

	count := func(id string, role model.Role) int { return len(svc.Posts(id, role)) }
	assert.Equal(t, 2, count("", ""), "anonymous viewers never see addressed posts")
	assert.Equal(t, 3, count("p1", model.RoleParent))
	assert.Equal(t, 2, count("p2", model.RoleParent))
	assert.Equal(t, 3, count("t1", model.RoleTeacher))
}
