package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/repository"
	"github.com/cppla/yatube/utils"
)

const feedCachePrefix = "cache:feed:"

// FeedPage is one rendered page of a post feed.
type FeedPage struct {
	Pagination utils.Pagination `json:"pagination"`
	Posts      []models.Post    `json:"posts"`
}

// PostController serves feeds, post pages, the post form and comments.
type PostController struct {
	posts    *repository.PostRepository
	groups   *repository.GroupRepository
	comments *repository.CommentRepository
	users    *repository.UserRepository
	pageSize int
	media    config.MediaSection
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	cfg := config.Get()
	return &PostController{
		posts:    repository.NewPostRepository(db),
		groups:   repository.NewGroupRepository(db),
		comments: repository.NewCommentRepository(db),
		users:    repository.NewUserRepository(db),
		pageSize: cfg.App.PageSize,
		media:    cfg.Media,
	}
}

// Index renders the global feed.
func (p *PostController) Index(ctx *gin.Context) {
	page, err := p.feed(ctx, "index", repository.PostFilter{})
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "index.html", gin.H{
		"user": middleware.CurrentUser(ctx),
		"page": page,
	})
}

// GroupPosts renders the feed of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	group, err := p.groups.FindBySlug(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		notFoundOrError(ctx, err)
		return
	}
	page, err := p.feed(ctx, "group:"+group.Slug, repository.PostFilter{GroupID: &group.ID})
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "group.html", gin.H{
		"user":  middleware.CurrentUser(ctx),
		"group": group,
		"page":  page,
	})
}

// Profile renders the feed of one author along with their post count.
func (p *PostController) Profile(ctx *gin.Context) {
	author, err := p.users.FindByUsername(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		notFoundOrError(ctx, err)
		return
	}
	page, err := p.feed(ctx, "profile:"+author.Username, repository.PostFilter{AuthorID: &author.ID})
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "profile.html", gin.H{
		"user":            middleware.CurrentUser(ctx),
		"author":          author,
		"number_of_posts": page.Pagination.Total,
		"page":            page,
	})
}

// PostView renders a single post with its comments and the comment form.
func (p *PostController) PostView(ctx *gin.Context) {
	post, ok := p.lookupPost(ctx)
	if !ok {
		return
	}
	comments, err := p.comments.ListByPost(ctx.Request.Context(), post.ID)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	count, err := p.posts.Count(ctx.Request.Context(), repository.PostFilter{AuthorID: &post.AuthorID})
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "post.html", gin.H{
		"user":               middleware.CurrentUser(ctx),
		"author":             &post.Author,
		"post":               post,
		"comments":           comments,
		"number_of_posts":    count,
		"form":               CommentForm{},
		"comment_max_length": models.CommentMaxLength,
	})
}

// NewPost shows the empty post form and handles its submission.
func (p *PostController) NewPost(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	if ctx.Request.Method != http.MethodPost {
		p.renderPostForm(ctx, PostForm{Errors: FieldErrors{}}, nil)
		return
	}

	form := PostForm{}
	form.Errors = bindForm(ctx, &form)
	text, groupID, err := p.cleanPost(ctx, &form)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	if !form.Errors.Empty() {
		p.renderPostForm(ctx, form, nil)
		return
	}
	image, ok := p.saveUpload(ctx, &form)
	if !ok {
		p.renderPostForm(ctx, form, nil)
		return
	}

	post := models.Post{
		Text:     text,
		AuthorID: user.ID,
		GroupID:  groupID,
		Image:    image,
	}
	if err := p.posts.Create(ctx.Request.Context(), &post); err != nil {
		utils.RemoveImage(p.media.Dir, image)
		utils.ServerError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(feedCachePrefix)
	utils.Sugar.Infow("post created", "post_id", post.ID, "author", user.Username)
	ctx.Redirect(http.StatusFound, "/")
}

// PostEdit lets the author change text, group and image of a post. Anyone
// else is sent back to the post page without any change.
func (p *PostController) PostEdit(ctx *gin.Context) {
	post, ok := p.lookupPost(ctx)
	if !ok {
		return
	}
	detail := postURL(post.Author.Username, post.ID)
	if user := middleware.CurrentUser(ctx); user == nil || user.ID != post.AuthorID {
		ctx.Redirect(http.StatusFound, detail)
		return
	}
	if ctx.Request.Method != http.MethodPost {
		p.renderPostForm(ctx, postFormFrom(post), post)
		return
	}

	form := PostForm{}
	form.Errors = bindForm(ctx, &form)
	text, groupID, err := p.cleanPost(ctx, &form)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	if !form.Errors.Empty() {
		p.renderPostForm(ctx, form, post)
		return
	}
	uploaded, ok := p.saveUpload(ctx, &form)
	if !ok {
		p.renderPostForm(ctx, form, post)
		return
	}

	oldImage := post.Image
	edited := *post
	edited.Text = text
	edited.GroupID = groupID
	switch {
	case uploaded != "":
		edited.Image = uploaded
	case form.ClearImage != "":
		edited.Image = ""
	}
	if err := p.posts.Update(ctx.Request.Context(), &edited); err != nil {
		utils.RemoveImage(p.media.Dir, uploaded)
		utils.ServerError(ctx, err)
		return
	}
	if oldImage != edited.Image {
		utils.RemoveImage(p.media.Dir, oldImage)
	}
	utils.InvalidateByPrefix(feedCachePrefix)
	ctx.Redirect(http.StatusFound, detail)
}

// AddComment stores a comment and returns to the post page. Invalid comments
// are dropped without feedback.
func (p *PostController) AddComment(ctx *gin.Context) {
	post, ok := p.lookupPost(ctx)
	if !ok {
		return
	}
	detail := postURL(post.Author.Username, post.ID)

	var form CommentForm
	errs := bindForm(ctx, &form)
	text := strings.TrimSpace(form.Text)
	if !errs.Empty() || text == "" {
		utils.Sugar.Debugw("comment rejected", "post_id", post.ID, "errors", errs)
		ctx.Redirect(http.StatusFound, detail)
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: middleware.CurrentUser(ctx).ID,
		Text:     text,
	}
	if err := p.comments.Create(ctx.Request.Context(), &comment); err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, detail)
}

// feed loads one page of posts for filter, going through the page cache.
func (p *PostController) feed(ctx *gin.Context, scope string, filter repository.PostFilter) (FeedPage, error) {
	raw := ctx.Query("page")
	key := fmt.Sprintf("%s%s:page=%d", feedCachePrefix, scope, requestedPage(raw))

	var page FeedPage
	if utils.CacheGetJSON(key, &page) {
		return page, nil
	}

	total, err := p.posts.Count(ctx.Request.Context(), filter)
	if err != nil {
		return FeedPage{}, err
	}
	page.Pagination = utils.Paginate(total, raw, p.pageSize)
	page.Posts, err = p.posts.List(ctx.Request.Context(), filter, page.Pagination.Offset(), page.Pagination.PerPage)
	if err != nil {
		return FeedPage{}, err
	}
	utils.CacheSetJSON(key, page, 0)
	return page, nil
}

// lookupPost finds the post named by the username and post_id path parameters.
// It writes the not-found or error response itself and reports false then.
func (p *PostController) lookupPost(ctx *gin.Context) (*models.Post, bool) {
	id, err := strconv.ParseUint(ctx.Param("post_id"), 10, 64)
	if err != nil {
		utils.NotFound(ctx)
		return nil, false
	}
	author, err := p.users.FindByUsername(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		notFoundOrError(ctx, err)
		return nil, false
	}
	post, err := p.posts.FindByAuthor(ctx.Request.Context(), author.ID, uint(id))
	if err != nil {
		notFoundOrError(ctx, err)
		return nil, false
	}
	return post, true
}

// cleanPost validates text and group beyond the binding tags.
func (p *PostController) cleanPost(ctx *gin.Context, form *PostForm) (string, *uint, error) {
	text := strings.TrimSpace(form.Text)
	if text == "" && len(form.Errors["text"]) == 0 {
		form.Errors.Add("text", "This field is required.")
	}

	const badChoice = "Select a valid choice. That choice is not one of the available choices."
	groupID, ok := form.groupID()
	if !ok {
		form.Errors.Add("group", badChoice)
		return text, nil, nil
	}
	if groupID != nil {
		exists, err := p.groups.Exists(ctx.Request.Context(), *groupID)
		if err != nil {
			return "", nil, err
		}
		if !exists {
			form.Errors.Add("group", badChoice)
		}
	}
	return text, groupID, nil
}

// saveUpload stores the optional image field. It reports false and records a
// field error when the upload is unusable.
func (p *PostController) saveUpload(ctx *gin.Context, form *PostForm) (string, bool) {
	header, err := ctx.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", true
	}
	if err != nil {
		form.Errors.Add("image", "Upload a valid image.")
		return "", false
	}
	if limit := int64(p.media.MaxUploadMB) << 20; limit > 0 && header.Size > limit {
		form.Errors.Add("image", fmt.Sprintf("The file is too large, the limit is %d MB.", p.media.MaxUploadMB))
		return "", false
	}
	f, err := header.Open()
	if err != nil {
		form.Errors.Add("image", "Upload a valid image.")
		return "", false
	}
	defer f.Close()

	rel, err := utils.SaveImage(f, p.media.Dir, uint(p.media.ImageMaxPx))
	if err != nil {
		if !errors.Is(err, utils.ErrInvalidImage) {
			utils.Sugar.Errorf("save upload: %v", err)
		}
		form.Errors.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		return "", false
	}
	return rel, true
}

func (p *PostController) renderPostForm(ctx *gin.Context, form PostForm, post *models.Post) {
	groups, err := p.groups.List(ctx.Request.Context())
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "post_new.html", gin.H{
		"user":    middleware.CurrentUser(ctx),
		"form":    form,
		"groups":  groups,
		"post":    post,
		"is_edit": post != nil,
	})
}

func notFoundOrError(ctx *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		utils.NotFound(ctx)
		return
	}
	utils.ServerError(ctx, err)
}

func postURL(username string, id uint) string {
	return fmt.Sprintf("/%s/%d/", url.PathEscape(username), id)
}

// requestedPage normalises the page query for cache keys.
func requestedPage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
