// Package testdb provides the shared Postgres fixture for database-backed
// tests. Tests connect to the database named by INKLET_TEST_DATABASE_URL
// and skip when it is not set.
package testdb

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inklet/inklet/internal/db"
	"github.com/inklet/inklet/internal/models"
	"github.com/inklet/inklet/pkg/config"
)

// Open connects to the test database, ensures the schema and empties every
// table so each test starts from a clean slate.
func Open(t *testing.T) *db.DB {
	t.Helper()

	url := os.Getenv("INKLET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("INKLET_TEST_DATABASE_URL not set; skipping database test")
	}

	database, err := db.New(&config.DatabaseConfig{URL: url}, "ERROR")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, database.Migrate())

	err = database.Exec(
		`TRUNCATE inklet_contacts, inklet_about, inklet_tech, inklet_comments,
		 inklet_follows, inklet_posts, inklet_groups, inklet_users
		 RESTART IDENTITY CASCADE`,
	).Error
	require.NoError(t, err)

	return database
}

// CreateUser persists a user for tests
func CreateUser(t *testing.T, database *db.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, database.Create(user).Error)
	return user
}

// CreateGroup persists a group for tests
func CreateGroup(t *testing.T, database *db.DB, title, slug string) *models.Group {
	t.Helper()
	group := &models.Group{Title: title, Slug: slug}
	require.NoError(t, database.Create(group).Error)
	return group
}

// CreatePost persists a post for tests. A nil group leaves the post
// ungrouped; createdAt orders the listings.
func CreatePost(t *testing.T, database *db.DB, author *models.User, group *models.Group, text string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		Text:      text,
		AuthorID:  author.ID,
		CreatedAt: createdAt,
	}
	if group != nil {
		post.GroupID = sql.NullInt64{Int64: group.ID, Valid: true}
	}
	require.NoError(t, database.Create(post).Error)
	return post
}

// CreateComment persists a comment for tests
func CreateComment(t *testing.T, database *db.DB, author *models.User, post *models.Post, text string) *models.Comment {
	t.Helper()
	comment := &models.Comment{
		Text:      text,
		AuthorID:  author.ID,
		PostID:    post.ID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, database.Create(comment).Error)
	return comment
}

// CreateFollow persists a follow edge for tests
func CreateFollow(t *testing.T, database *db.DB, user, author *models.User) *models.Follow {
	t.Helper()
	follow := &models.Follow{
		UserID:    user.ID,
		AuthorID:  author.ID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, database.Create(follow).Error)
	return follow
}
