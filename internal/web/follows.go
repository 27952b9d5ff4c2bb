package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inklet/inklet/internal/db"
	"github.com/inklet/inklet/internal/models"
	"github.com/inklet/inklet/internal/query"
	"github.com/inklet/inklet/pkg/logging"
)

// FollowsHandler serves the follow feed and the follow/unfollow actions
type FollowsHandler struct {
	query   *query.Service
	users   *db.UserRepository
	follows *db.FollowRepository
	render  Renderer
	errs    *errorPages
	logger  *zap.Logger
}

// NewFollowsHandler creates a new follows handler
func NewFollowsHandler(repo *db.Repository, qs *query.Service, render Renderer, errs *errorPages) *FollowsHandler {
	return &FollowsHandler{
		query:   qs,
		users:   db.NewUserRepository(repo),
		follows: db.NewFollowRepository(repo),
		render:  render,
		errs:    errs,
		logger:  logging.WithComponent("web-follows"),
	}
}

// Feed handles GET /follow/: every followed author's posts, newest-first.
// Following nobody, or followed authors with no posts, renders the empty
// state rather than an error.
func (h *FollowsHandler) Feed(c *gin.Context) {
	viewer := CurrentUser(c)

	feed, err := h.query.Feed(c.Request.Context(), viewer, pageParam(c))
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	h.render.HTML(c, http.StatusOK, "posts/follow.html", gin.H{
		"title":  "Followed authors",
		"page":   feed.PostPage,
		"hasAny": feed.HasAny,
	})
}

// Follow handles GET /profile/:username/follow/. Creating an edge that
// already exists is a no-op, as is following yourself.
func (h *FollowsHandler) Follow(c *gin.Context) {
	viewer := CurrentUser(c)

	author, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	if author == nil {
		h.errs.notFound(c)
		return
	}

	if author.ID != viewer.ID {
		follow := &models.Follow{
			UserID:    viewer.ID,
			AuthorID:  author.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := h.follows.GetOrCreate(c.Request.Context(), follow); err != nil &&
			!errors.Is(err, db.ErrSelfFollow) {
			h.errs.serverError(c, err)
			return
		}
		h.logger.Info("Follow edge created",
			zap.String("user", viewer.Username),
			zap.String("author", author.Username),
		)
	}

	c.Redirect(http.StatusFound, "/follow/")
}

// Unfollow handles GET /profile/:username/unfollow/. A missing edge is a
// 404, matching the not-found treatment of every other route parameter.
func (h *FollowsHandler) Unfollow(c *gin.Context) {
	viewer := CurrentUser(c)

	author, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	if author == nil {
		h.errs.notFound(c)
		return
	}

	edge, err := h.follows.Get(c.Request.Context(), viewer.ID, author.ID)
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	if edge == nil {
		h.errs.notFound(c)
		return
	}

	if err := h.follows.Delete(c.Request.Context(), viewer.ID, author.ID); err != nil {
		h.errs.serverError(c, err)
		return
	}

	h.logger.Info("Follow edge removed",
		zap.String("user", viewer.Username),
		zap.String("author", author.Username),
	)
	c.Redirect(http.StatusFound, "/follow/")
}
