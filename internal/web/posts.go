package web

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inklet/inklet/internal/db"
	"github.com/inklet/inklet/internal/media"
	"github.com/inklet/inklet/internal/models"
	"github.com/inklet/inklet/internal/query"
	"github.com/inklet/inklet/pkg/logging"
)

// PostsHandler serves the listing pages and the post lifecycle
type PostsHandler struct {
	query      *query.Service
	posts      *db.PostRepository
	groups     *db.GroupRepository
	comments   *db.CommentRepository
	media      *media.Store
	render     Renderer
	errs       *errorPages
	maxComment int
	logger     *zap.Logger
}

// NewPostsHandler creates a new posts handler
func NewPostsHandler(repo *db.Repository, qs *query.Service, mediaStore *media.Store, render Renderer, errs *errorPages, maxComment int) *PostsHandler {
	return &PostsHandler{
		query:      qs,
		posts:      db.NewPostRepository(repo),
		groups:     db.NewGroupRepository(repo),
		comments:   db.NewCommentRepository(repo),
		media:      mediaStore,
		render:     render,
		errs:       errs,
		maxComment: maxComment,
		logger:     logging.WithComponent("web-posts"),
	}
}

// pageParam reads the page query parameter; anything unparsable is page 1,
// clamping of out-of-range values happens in the query layer.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

// Index handles GET /
func (h *PostsHandler) Index(c *gin.Context) {
	pageData, err := h.query.Index(c.Request.Context(), pageParam(c))
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	h.render.HTML(c, http.StatusOK, "posts/index.html", gin.H{
		"title": "Latest updates",
		"page":  pageData,
	})
}

// GroupList handles GET /group/:slug/
func (h *PostsHandler) GroupList(c *gin.Context) {
	pageData, err := h.query.Group(c.Request.Context(), c.Param("slug"), pageParam(c))
	if err != nil {
		if err == query.ErrNotFound {
			h.errs.notFound(c)
			return
		}
		h.errs.serverError(c, err)
		return
	}
	h.render.HTML(c, http.StatusOK, "posts/group_list.html", gin.H{
		"group": pageData.Group,
		"page":  pageData.PostPage,
	})
}

// Profile handles GET /profile/:username/
func (h *PostsHandler) Profile(c *gin.Context) {
	pageData, err := h.query.Profile(c.Request.Context(), c.Param("username"), pageParam(c), CurrentUser(c))
	if err != nil {
		if err == query.ErrNotFound {
			h.errs.notFound(c)
			return
		}
		h.errs.serverError(c, err)
		return
	}
	h.render.HTML(c, http.StatusOK, "posts/profile.html", gin.H{
		"author":    pageData.Author,
		"isOwner":   pageData.IsOwner,
		"following": pageData.Following,
		"page":      pageData.PostPage,
	})
}

// Detail handles GET /posts/:id/
func (h *PostsHandler) Detail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.errs.notFound(c)
		return
	}

	detail, err := h.query.PostByID(c.Request.Context(), id)
	if err != nil {
		if err == query.ErrNotFound {
			h.errs.notFound(c)
			return
		}
		h.errs.serverError(c, err)
		return
	}
	h.render.HTML(c, http.StatusOK, "posts/post_detail.html", gin.H{
		"post":     detail,
		"comments": detail.Comments,
	})
}

// postForm carries the submitted post fields and their validation state
type postForm struct {
	Text    string
	GroupID sql.NullInt64
	Errors  map[string]string
}

func (h *PostsHandler) parsePostForm(c *gin.Context) postForm {
	form := postForm{
		Text:   strings.TrimSpace(c.PostForm("text")),
		Errors: map[string]string{},
	}
	if form.Text == "" {
		form.Errors["text"] = "Text is required"
	}

	if raw := c.PostForm("group"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			form.Errors["group"] = "Unknown group"
			return form
		}
		group, err := h.groups.GetByID(c.Request.Context(), id)
		if err != nil || group == nil {
			form.Errors["group"] = "Unknown group"
			return form
		}
		form.GroupID = sql.NullInt64{Int64: id, Valid: true}
	}
	return form
}

// saveImage stores an uploaded image, if any, returning its media path
func (h *PostsHandler) saveImage(c *gin.Context) (sql.NullString, error) {
	header, err := c.FormFile("image")
	if err != nil {
		// Only an absent file is fine; a broken multipart body must not
		// quietly publish the post without its image.
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return sql.NullString{}, nil
		}
		return sql.NullString{}, fmt.Errorf("failed to read upload: %w", err)
	}
	f, err := header.Open()
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	path, err := h.media.Save(f, header.Filename)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: path, Valid: true}, nil
}

func (h *PostsHandler) renderPostForm(c *gin.Context, form postForm, isEdit bool, post *models.Post) {
	groups, err := h.groups.List(c.Request.Context())
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	h.render.HTML(c, http.StatusOK, "posts/create.html", gin.H{
		"form":   form,
		"groups": groups,
		"isEdit": isEdit,
		"post":   post,
	})
}

// CreateForm handles GET /create/
func (h *PostsHandler) CreateForm(c *gin.Context) {
	h.renderPostForm(c, postForm{Errors: map[string]string{}}, false, nil)
}

// Create handles POST /create/
func (h *PostsHandler) Create(c *gin.Context) {
	user := CurrentUser(c)

	form := h.parsePostForm(c)
	if len(form.Errors) > 0 {
		h.renderPostForm(c, form, false, nil)
		return
	}

	image, err := h.saveImage(c)
	if err != nil {
		h.errs.serverError(c, err)
		return
	}

	post := &models.Post{
		Text:      form.Text,
		AuthorID:  user.ID,
		GroupID:   form.GroupID,
		Image:     image,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.posts.Create(c.Request.Context(), post); err != nil {
		if errorsIsConstraint(err) {
			form.Errors["text"] = "Could not save post"
			h.renderPostForm(c, form, false, nil)
			return
		}
		h.errs.serverError(c, err)
		return
	}

	h.logger.Info("Post created",
		zap.Int64("post_id", post.ID),
		zap.String("author", user.Username),
	)
	c.Redirect(http.StatusFound, "/profile/"+user.Username+"/")
}

// loadGuarded fetches the routed post and applies the mutation guard. A nil
// return means a response was already written.
func (h *PostsHandler) loadGuarded(c *gin.Context) *models.Post {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.errs.notFound(c)
		return nil
	}
	post, err := h.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.errs.serverError(c, err)
		return nil
	}
	if post == nil {
		h.errs.notFound(c)
		return nil
	}
	if actor := CurrentUser(c); !CanMutate(actor, post) {
		denyMutation(c, actor)
		return nil
	}
	return post
}

// EditForm handles GET /posts/:id/edit/
func (h *PostsHandler) EditForm(c *gin.Context) {
	post := h.loadGuarded(c)
	if post == nil {
		return
	}
	h.renderPostForm(c, postForm{Text: post.Text, GroupID: post.GroupID, Errors: map[string]string{}}, true, post)
}

// Edit handles POST /posts/:id/edit/. Text, group and image are replaced;
// the creation timestamp and author never change.
func (h *PostsHandler) Edit(c *gin.Context) {
	post := h.loadGuarded(c)
	if post == nil {
		return
	}

	form := h.parsePostForm(c)
	if len(form.Errors) > 0 {
		h.renderPostForm(c, form, true, post)
		return
	}

	oldImage := post.Image
	image, err := h.saveImage(c)
	if err != nil {
		h.errs.serverError(c, err)
		return
	}

	post.Text = form.Text
	post.GroupID = form.GroupID
	if image.Valid {
		post.Image = image
	}
	if err := h.posts.Update(c.Request.Context(), post); err != nil {
		if errorsIsConstraint(err) {
			form.Errors["text"] = "Could not save post"
			h.renderPostForm(c, form, true, post)
			return
		}
		h.errs.serverError(c, err)
		return
	}

	if image.Valid && oldImage.Valid && oldImage.String != image.String {
		if err := h.media.Remove(oldImage.String); err != nil {
			h.logger.Warn("Failed to remove replaced image",
				zap.String("path", oldImage.String),
				zap.Error(err),
			)
		}
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d/", post.ID))
}

// DeleteForm handles GET /posts/:id/delete/
func (h *PostsHandler) DeleteForm(c *gin.Context) {
	post := h.loadGuarded(c)
	if post == nil {
		return
	}
	h.render.HTML(c, http.StatusOK, "posts/delete.html", gin.H{
		"post": post,
	})
}

// Delete handles POST /posts/:id/delete/. The stored image is removed
// before the row: if removal fails the delete aborts and no partial state
// is left behind. Comments go with the post.
func (h *PostsHandler) Delete(c *gin.Context) {
	post := h.loadGuarded(c)
	if post == nil {
		return
	}

	if post.Image.Valid {
		if err := h.media.Remove(post.Image.String); err != nil {
			h.errs.serverError(c, err)
			return
		}
	}

	if err := h.posts.Delete(c.Request.Context(), post.ID); err != nil {
		h.errs.serverError(c, err)
		return
	}

	h.logger.Info("Post deleted", zap.Int64("post_id", post.ID))
	c.Redirect(http.StatusFound, "/")
}

// AddComment handles POST /posts/:id/comment/. Anonymous callers never get
// here; the auth middleware redirected them before anything was persisted.
func (h *PostsHandler) AddComment(c *gin.Context) {
	user := CurrentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.errs.notFound(c)
		return
	}
	post, err := h.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	if post == nil {
		h.errs.notFound(c)
		return
	}

	// The bound is in characters, not bytes; multibyte text counts one per rune.
	text := strings.TrimSpace(c.PostForm("text"))
	if text == "" || utf8.RuneCountInString(text) > h.maxComment {
		detail, err := h.query.PostByID(c.Request.Context(), id)
		if err != nil {
			h.errs.serverError(c, err)
			return
		}
		h.render.HTML(c, http.StatusOK, "posts/post_detail.html", gin.H{
			"post":       detail,
			"comments":   detail.Comments,
			"formErrors": map[string]string{"text": "Comment must be between 1 and " + strconv.Itoa(h.maxComment) + " characters"},
		})
		return
	}

	comment := &models.Comment{
		Text:      text,
		AuthorID:  user.ID,
		PostID:    post.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.comments.Create(c.Request.Context(), comment); err != nil {
		h.errs.serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d/", post.ID))
}
