package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.AppConfig{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.URI = fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	cfg.Log.Level = "silent"

	db, err := config.OpenDatabase(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Group{}, &models.Post{}, &models.Comment{}))
	return db
}

type fixture struct {
	users    *UserRepository
	groups   *GroupRepository
	posts    *PostRepository
	comments *CommentRepository
}

func newFixture(t *testing.T) fixture {
	db := setupTestDB(t)
	return fixture{
		users:    NewUserRepository(db),
		groups:   NewGroupRepository(db),
		posts:    NewPostRepository(db),
		comments: NewCommentRepository(db),
	}
}

func (f fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f fixture) group(t *testing.T, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Тестовый заголовок", Description: "Описание", Slug: slug}
	require.NoError(t, f.groups.Create(context.Background(), g))
	return g
}

func (f fixture) post(t *testing.T, author *models.User, group *models.Group, text string) *models.Post {
	t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, f.posts.Create(context.Background(), p))
	return p
}

func TestPostCreate_SetsPubDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "gena")

	before := time.Now()
	p := f.post(t, author, nil, "Текст поста")

	got, err := f.posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Текст поста", got.Text)
	assert.Equal(t, author.ID, got.Author.ID)
	assert.Nil(t, got.Group)
	assert.WithinDuration(t, before, got.PubDate, 5*time.Second)

	total, err := f.posts.Count(ctx, PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPostList_FiltersAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gena := f.user(t, "gena")
	lex := f.user(t, "lex")
	g := f.group(t, "test-slug")

	base := time.Now().Add(-time.Hour)
	for i, spec := range []struct {
		author *models.User
		group  *models.Group
	}{{gena, g}, {lex, nil}, {gena, nil}, {lex, g}} {
		p := &models.Post{Text: fmt.Sprintf("post %d", i), AuthorID: spec.author.ID, PubDate: base.Add(time.Duration(i) * time.Minute)}
		if spec.group != nil {
			p.GroupID = &spec.group.ID
		}
		require.NoError(t, f.posts.Create(ctx, p))
	}

	all, err := f.posts.List(ctx, PostFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "post 3", all[0].Text)
	assert.Equal(t, "post 0", all[3].Text)
	assert.Equal(t, "lex", all[0].Author.Username)
	require.NotNil(t, all[0].Group)
	assert.Equal(t, "test-slug", all[0].Group.Slug)

	grouped, err := f.posts.List(ctx, PostFilter{GroupID: &g.ID}, 0, 10)
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, "post 3", grouped[0].Text)
	assert.Equal(t, "post 0", grouped[1].Text)

	n, err := f.posts.Count(ctx, PostFilter{AuthorID: &gena.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page2, err := f.posts.List(ctx, PostFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "post 1", page2[0].Text)
}

func TestPostFindByAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gena := f.user(t, "gena")
	lex := f.user(t, "lex")
	p := f.post(t, gena, nil, "text")

	got, err := f.posts.FindByAuthor(ctx, gena.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.posts.FindByAuthor(ctx, lex.ID, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.posts.FindByID(ctx, p.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostUpdate_KeepsAuthorAndPubDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gena := f.user(t, "gena")
	lex := f.user(t, "lex")
	g := f.group(t, "test-slug")
	p := f.post(t, gena, g, "before")

	original, err := f.posts.FindByID(ctx, p.ID)
	require.NoError(t, err)

	edited := *original
	edited.Text = "after"
	edited.GroupID = nil
	edited.Image = "posts/x.jpg"
	edited.AuthorID = lex.ID
	edited.PubDate = time.Now().Add(24 * time.Hour)
	require.NoError(t, f.posts.Update(ctx, &edited))

	got, err := f.posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Text)
	assert.Nil(t, got.GroupID)
	assert.Equal(t, "posts/x.jpg", got.Image)
	assert.Equal(t, gena.ID, got.AuthorID)
	assert.True(t, original.PubDate.Equal(got.PubDate))
}

func TestCommentListByPost_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gena := f.user(t, "gena")
	p := f.post(t, gena, nil, "text")

	t1 := time.Now().Add(-3 * time.Minute)
	for i, ts := range []time.Time{t1, t1.Add(time.Minute), t1.Add(2 * time.Minute)} {
		c := &models.Comment{PostID: p.ID, AuthorID: gena.ID, Text: fmt.Sprintf("t%d", i+1), Created: ts}
		require.NoError(t, f.comments.Create(ctx, c))
	}

	got, err := f.comments.ListByPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"t3", "t2", "t1"}, []string{got[0].Text, got[1].Text, got[2].Text})
	assert.Equal(t, "gena", got[0].Author.Username)
}

func TestGroupDelete_ClearsPostGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gena := f.user(t, "gena")
	g := f.group(t, "test-slug")
	other := f.group(t, "other")
	for i := 0; i < 3; i++ {
		f.post(t, gena, g, fmt.Sprintf("grouped %d", i))
	}
	kept := f.post(t, gena, other, "other group")

	require.NoError(t, f.groups.Delete(ctx, g.ID))

	_, err := f.groups.FindBySlug(ctx, "test-slug")
	assert.ErrorIs(t, err, ErrNotFound)

	total, err := f.posts.Count(ctx, PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	n, err := f.posts.Count(ctx, PostFilter{GroupID: &g.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.posts.FindByID(ctx, kept.ID)
	require.NoError(t, err)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, other.ID, *got.GroupID)

	assert.ErrorIs(t, f.groups.Delete(ctx, g.ID), ErrNotFound)
}

func TestPostDelete_RemovesComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gena := f.user(t, "gena")
	p := f.post(t, gena, nil, "doomed")
	survivor := f.post(t, gena, nil, "survivor")
	for i := 0; i < 3; i++ {
		require.NoError(t, f.comments.Create(ctx, &models.Comment{PostID: p.ID, AuthorID: gena.ID, Text: "c"}))
	}
	require.NoError(t, f.comments.Create(ctx, &models.Comment{PostID: survivor.ID, AuthorID: gena.ID, Text: "c"}))

	require.NoError(t, f.posts.Delete(ctx, p.ID))

	n, err := f.comments.CountByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = f.comments.CountByPost(ctx, survivor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = f.posts.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserDelete_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gena := f.user(t, "gena")
	lex := f.user(t, "lex")
	genaPost := f.post(t, gena, nil, "by gena")
	lexPost := f.post(t, lex, nil, "by lex")
	require.NoError(t, f.comments.Create(ctx, &models.Comment{PostID: lexPost.ID, AuthorID: gena.ID, Text: "gena on lex"}))
	require.NoError(t, f.comments.Create(ctx, &models.Comment{PostID: genaPost.ID, AuthorID: lex.ID, Text: "lex on gena"}))
	require.NoError(t, f.comments.Create(ctx, &models.Comment{PostID: lexPost.ID, AuthorID: lex.ID, Text: "lex on lex"}))

	require.NoError(t, f.users.Delete(ctx, gena.ID))

	_, err := f.users.FindByUsername(ctx, "gena")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.posts.FindByID(ctx, genaPost.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	left, err := f.comments.ListByPost(ctx, lexPost.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "lex on lex", left[0].Text)

	n, err := f.comments.CountByPost(ctx, genaPost.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGroupExistsAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.group(t, "b")
	a := &models.Group{Title: "A", Slug: "a"}
	require.NoError(t, f.groups.Create(ctx, a))

	ok, err := f.groups.Exists(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.groups.Exists(ctx, a.ID+b.ID+10)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := f.groups.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Slug)

	dup := &models.Group{Title: "dup", Slug: "a"}
	assert.Error(t, f.groups.Create(ctx, dup))
}
