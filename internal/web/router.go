package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inklet/inklet/internal/cache"
	"github.com/inklet/inklet/internal/db"
	"github.com/inklet/inklet/internal/media"
	"github.com/inklet/inklet/internal/query"
	"github.com/inklet/inklet/pkg/config"
	"github.com/inklet/inklet/pkg/logging"
	"github.com/inklet/inklet/pkg/telemetry"
)

// Router wires the site routes to their handlers
type Router struct {
	db       *db.DB
	cache    *cache.Cache
	media    *media.Store
	cfg      *config.Config
	sessions SessionStore
	render   Renderer
	logger   *zap.Logger
}

// NewRouter creates a new site router
func NewRouter(database *db.DB, redisCache *cache.Cache, mediaStore *media.Store, cfg *config.Config) *Router {
	return &Router{
		db:       database,
		cache:    redisCache,
		media:    mediaStore,
		cfg:      cfg,
		sessions: NewSessionStore(redisCache),
		render:   HTMLRenderer{},
		logger:   logging.WithComponent("web-router"),
	}
}

// WithRenderer overrides the renderer, used by handler tests
func (r *Router) WithRenderer(render Renderer) *Router {
	r.render = render
	return r
}

// WithSessions overrides the session store, used by handler tests
func (r *Router) WithSessions(sessions SessionStore) *Router {
	r.sessions = sessions
	return r
}

// pageStore returns the cache as a PageStore, or nil when caching is off
func (r *Router) pageStore() PageStore {
	if r.cache == nil {
		return nil
	}
	return r.cache
}

// SetupRoutes sets up all site routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	repo := db.NewRepository(r.db.DB)
	users := db.NewUserRepository(repo)
	qs := query.NewService(r.db.DB, r.cfg.Posts.PerPage)

	render := r.render
	errs := newErrorPages(render)

	posts := NewPostsHandler(repo, qs, r.media, render, errs, r.cfg.Posts.CommentMaxLen)
	follows := NewFollowsHandler(repo, qs, render, errs)
	usersHandler := NewUsersHandler(repo, r.sessions, render, errs, r.cfg.Session)
	about := NewAboutHandler(repo, render, errs)

	engine.Use(r.requestLogger())
	engine.Use(r.traceRequests())
	engine.Use(sessionMiddleware(r.sessions, users, r.cfg.Session.CookieName))

	engine.NoRoute(errs.notFound)

	// Health check endpoint
	engine.GET("/health", r.healthHandler)

	// Public listing pages; only the index rendering is cached
	engine.GET("/", cachePage(r.pageStore(), r.cfg.Posts.IndexCacheTTL), posts.Index)
	engine.GET("/group/:slug/", posts.GroupList)
	engine.GET("/profile/:username/", posts.Profile)
	engine.GET("/posts/:id/", posts.Detail)

	// Content lifecycle; ownership is checked inside the handlers so the
	// redirect policy can distinguish anonymous from non-owner actors
	engine.GET("/create/", requireAuth(), posts.CreateForm)
	engine.POST("/create/", requireAuth(), posts.Create)
	engine.GET("/posts/:id/edit/", posts.EditForm)
	engine.POST("/posts/:id/edit/", posts.Edit)
	engine.GET("/posts/:id/delete/", posts.DeleteForm)
	engine.POST("/posts/:id/delete/", posts.Delete)
	engine.POST("/posts/:id/comment/", requireAuth(), posts.AddComment)

	// Follow feed and edges
	engine.GET("/follow/", requireAuth(), follows.Feed)
	engine.GET("/profile/:username/follow/", requireAuth(), follows.Follow)
	engine.GET("/profile/:username/unfollow/", requireAuth(), follows.Unfollow)

	// Credentials
	engine.GET("/auth/signup/", usersHandler.SignupForm)
	engine.POST("/auth/signup/", usersHandler.Signup)
	engine.GET("/auth/login/", usersHandler.LoginForm)
	engine.POST("/auth/login/", usersHandler.Login)
	engine.GET("/auth/logout/", usersHandler.Logout)

	// About pages
	engine.GET("/about/author/:id/", about.Author)
	engine.GET("/about/tech/", about.Tech)
}

func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (r *Router) traceRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	if err := r.db.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "inklet",
	})
}
