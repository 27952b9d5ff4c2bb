package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/inklet/inklet/internal/db"
	"github.com/inklet/inklet/internal/db/testdb"
	"github.com/inklet/inklet/internal/media"
	"github.com/inklet/inklet/internal/models"
	"github.com/inklet/inklet/internal/web"
	"github.com/inklet/inklet/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRenderer writes the template name as the body, so tests can assert
// which page was rendered without a template set.
type stubRenderer struct{}

func (stubRenderer) HTML(c *gin.Context, status int, name string, data gin.H) {
	c.String(status, name)
}

type testServer struct {
	engine   *gin.Engine
	sessions *web.MemorySessions
	media    *media.Store
	cfg      *config.Config
}

func newTestServer(t *testing.T, database *db.DB) *testServer {
	t.Helper()

	cfg := &config.Config{
		Posts: config.PostsConfig{
			PerPage:       10,
			IndexCacheTTL: 0, // cache behavior has its own tests
			CommentMaxLen: 5000,
		},
		Media: config.MediaConfig{Root: t.TempDir()},
		Session: config.SessionConfig{
			CookieName: "inklet_session",
			TTL:        time.Hour,
		},
	}

	mediaStore, err := media.NewStore(&cfg.Media)
	require.NoError(t, err)

	sessions := web.NewMemorySessions()
	router := web.NewRouter(database, nil, mediaStore, cfg).
		WithRenderer(stubRenderer{}).
		WithSessions(sessions)

	engine := gin.New()
	router.SetupRoutes(engine)

	return &testServer{
		engine:   engine,
		sessions: sessions,
		media:    mediaStore,
		cfg:      cfg,
	}
}

// signIn creates a session for the user and returns the cookie to send
func (s *testServer) signIn(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	token, err := s.sessions.Create(context.Background(), user.ID, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: s.cfg.Session.CookieName, Value: token}
}

func (s *testServer) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestIndexListsNewestFirst(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	testdb.CreatePost(t, database, alice, nil, "Hello", time.Now().UTC())

	w := srv.get("/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "posts/index.html", w.Body.String())
}

func TestUnknownGroupIs404(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	w := srv.get("/group/no-such-group/", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "core/404.html", w.Body.String())
}

func TestCreatePostRedirectsToProfile(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	cookie := srv.signIn(t, alice)

	w := srv.postForm("/create/", url.Values{"text": {"my first post"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/profile/alice/", w.Header().Get("Location"))

	var count int64
	require.NoError(t, database.Model(&models.Post{}).Where("author_id = ?", alice.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCreatePostRequiresText(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	cookie := srv.signIn(t, alice)

	w := srv.postForm("/create/", url.Values{"text": {"   "}}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "posts/create.html", w.Body.String())

	var count int64
	require.NoError(t, database.Model(&models.Post{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateRequiresAuth(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	w := srv.postForm("/create/", url.Values{"text": {"anonymous post"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth/login/?next="))
}

func TestNonOwnerEditRedirectsToIndex(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	mallory := testdb.CreateUser(t, database, "mallory")
	post := testdb.CreatePost(t, database, alice, nil, "alice's post", time.Now().UTC())
	cookie := srv.signIn(t, mallory)

	postPath := "/posts/" + strconv.FormatInt(post.ID, 10)

	// Silent denial, never a 403 page
	for _, path := range []string{postPath + "/edit/", postPath + "/delete/"} {
		w := srv.get(path, cookie)
		require.Equal(t, http.StatusFound, w.Code, path)
		require.Equal(t, "/", w.Header().Get("Location"), path)
	}

	w := srv.postForm(postPath+"/edit/", url.Values{"text": {"defaced"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))

	// The post is untouched
	repo := db.NewRepository(database.DB)
	reloaded, err := db.NewPostRepository(repo).GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.Equal(t, "alice's post", reloaded.Text)
}

func TestAnonymousEditRedirectsToLogin(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	post := testdb.CreatePost(t, database, alice, nil, "alice's post", time.Now().UTC())

	w := srv.get("/posts/"+strconv.FormatInt(post.ID, 10)+"/edit/", nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth/login/?next="))
}

func TestOwnerEditUpdatesPost(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	post := testdb.CreatePost(t, database, alice, nil, "original", created)
	cookie := srv.signIn(t, alice)

	postPath := "/posts/" + strconv.FormatInt(post.ID, 10)
	w := srv.postForm(postPath+"/edit/", url.Values{"text": {"edited"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, postPath+"/", w.Header().Get("Location"))

	repo := db.NewRepository(database.DB)
	reloaded, err := db.NewPostRepository(repo).GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.Equal(t, "edited", reloaded.Text)
	require.True(t, created.Equal(reloaded.CreatedAt))
}

func TestOwnerDeleteRemovesPostAndImage(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	post := testdb.CreatePost(t, database, alice, nil, "with image", time.Now().UTC())

	// Attach a stored image to the post
	rel, err := srv.media.Save(strings.NewReader("image bytes"), "pic.png")
	require.NoError(t, err)
	require.NoError(t, database.Model(post).Update("image", rel).Error)

	cookie := srv.signIn(t, alice)
	w := srv.postForm("/posts/"+strconv.FormatInt(post.ID, 10)+"/delete/", url.Values{}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))

	repo := db.NewRepository(database.DB)
	gone, err := db.NewPostRepository(repo).GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	exists, err := srv.media.Exists(rel)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestAnonymousCommentCreatesNothing(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	post := testdb.CreatePost(t, database, alice, nil, "comment on me", time.Now().UTC())

	w := srv.postForm("/posts/"+strconv.FormatInt(post.ID, 10)+"/comment/",
		url.Values{"text": {"drive-by comment"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth/login/?next="))

	var count int64
	require.NoError(t, database.Model(&models.Comment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCommentOnMissingPostIs404(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	cookie := srv.signIn(t, alice)

	w := srv.postForm("/posts/99999/comment/", url.Values{"text": {"into the void"}}, cookie)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentRedirectsToDetail(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	bob := testdb.CreateUser(t, database, "bob")
	post := testdb.CreatePost(t, database, alice, nil, "comment on me", time.Now().UTC())
	cookie := srv.signIn(t, bob)

	postPath := "/posts/" + strconv.FormatInt(post.ID, 10)
	w := srv.postForm(postPath+"/comment/", url.Values{"text": {"nice post"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, postPath+"/", w.Header().Get("Location"))

	var count int64
	require.NoError(t, database.Model(&models.Comment{}).
		Where("post_id = ? AND author_id = ?", post.ID, bob.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCommentBoundCountsCharacters(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	post := testdb.CreatePost(t, database, alice, nil, "bounded", time.Now().UTC())
	cookie := srv.signIn(t, alice)

	postPath := "/posts/" + strconv.FormatInt(post.ID, 10)

	// 5000 two-byte characters are within the bound even though the byte
	// length is twice it
	atLimit := strings.Repeat("п", 5000)
	w := srv.postForm(postPath+"/comment/", url.Values{"text": {atLimit}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, postPath+"/", w.Header().Get("Location"))

	// One character over re-renders the form and persists nothing
	overLimit := strings.Repeat("п", 5001)
	w = srv.postForm(postPath+"/comment/", url.Values{"text": {overLimit}}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "posts/post_detail.html", w.Body.String())

	var count int64
	require.NoError(t, database.Model(&models.Comment{}).
		Where("post_id = ?", post.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestFollowFlow(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	alice := testdb.CreateUser(t, database, "alice")
	bob := testdb.CreateUser(t, database, "bob")
	cookie := srv.signIn(t, bob)

	// Following twice leaves exactly one edge
	for i := 0; i < 2; i++ {
		w := srv.get("/profile/alice/follow/", cookie)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/follow/", w.Header().Get("Location"))
	}
	var count int64
	require.NoError(t, database.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", bob.ID, alice.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)

	// Following yourself is silently skipped
	selfCookie := srv.signIn(t, alice)
	w := srv.get("/profile/alice/follow/", selfCookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.NoError(t, database.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", alice.ID, alice.ID).
		Count(&count).Error)
	require.Zero(t, count)

	// Unfollow removes the edge; a second unfollow is a 404
	w = srv.get("/profile/alice/unfollow/", cookie)
	require.Equal(t, http.StatusFound, w.Code)
	w = srv.get("/profile/alice/unfollow/", cookie)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Unknown target is a 404 too
	w = srv.get("/profile/nobody/follow/", cookie)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedRequiresAuth(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	w := srv.get("/follow/", nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth/login/?next="))
}

func TestSignupSignsIn(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	w := srv.postForm("/auth/signup/", url.Values{
		"username": {"newcomer"},
		"password": {"long enough"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))

	var user models.User
	require.NoError(t, database.Where("username = ?", "newcomer").First(&user).Error)
	require.NotEmpty(t, w.Result().Cookies())
}

func TestSignupDuplicateUsername(t *testing.T) {
	database := testdb.Open(t)
	srv := newTestServer(t, database)

	testdb.CreateUser(t, database, "taken")

	w := srv.postForm("/auth/signup/", url.Values{
		"username": {"taken"},
		"password": {"long enough"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "users/signup.html", w.Body.String())
}
