package query

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inklet/inklet/internal/models"
	"github.com/inklet/inklet/pkg/logging"
)

// ErrNotFound marks a view lookup whose route parameter does not resolve to
// an existing group, user or post.
var ErrNotFound = errors.New("not found")

// PostView is a post annotated with the live relation counts the listing
// pages show. The counts are computed at query time, never stored.
type PostView struct {
	models.Post
	AuthorPostsCount int64 `gorm:"column:author_posts_count"`
	GroupPostsCount  int64 `gorm:"column:group_posts_count"`
}

// PostPage is one page of annotated posts
type PostPage struct {
	Posts      []PostView
	Pagination Pagination
}

// ProfilePage is an author's post page plus the viewer-dependent flags the
// profile template switches on.
type ProfilePage struct {
	PostPage
	Author    *models.User
	IsOwner   bool
	Following bool
}

// GroupPage is a group's post page together with the group itself
type GroupPage struct {
	PostPage
	Group *models.Group
}

// FeedPage is the follow feed plus the empty-state flag
type FeedPage struct {
	PostPage
	HasAny bool
}

// PostDetail is a single post with comments eagerly attached
type PostDetail struct {
	PostView
	Comments []models.Comment
}

// Service builds the ordered, paginated, annotated result sets behind every
// listing page.
type Service struct {
	db      *gorm.DB
	perPage int
	logger  *zap.Logger
}

// NewService creates a new query service
func NewService(db *gorm.DB, perPage int) *Service {
	return &Service{
		db:      db,
		perPage: perPage,
		logger:  logging.WithComponent("query"),
	}
}

const (
	authorCountExpr = "(SELECT COUNT(*) FROM inklet_posts p2 WHERE p2.author_id = inklet_posts.author_id) AS author_posts_count"
	groupCountExpr  = "(SELECT COUNT(*) FROM inklet_posts p3 WHERE p3.group_id = inklet_posts.group_id) AS group_posts_count"
)

// annotated returns the base queryset every listing shares: newest-first
// posts with live author and group post counts.
func (s *Service) annotated(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("inklet_posts.*, " + authorCountExpr + ", " + groupCountExpr).
		Order("inklet_posts.created_at DESC")
}

func (s *Service) fetchPage(base *gorm.DB, page int) (PostPage, error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return PostPage{}, err
	}

	pagination, offset := Paginate(page, s.perPage, total)

	var posts []PostView
	if err := base.
		Preload("Author").
		Preload("Group").
		Offset(offset).
		Limit(s.perPage).
		Find(&posts).Error; err != nil {
		return PostPage{}, err
	}

	return PostPage{Posts: posts, Pagination: pagination}, nil
}

// Index returns all posts, newest-first, with both relation counts
func (s *Service) Index(ctx context.Context, page int) (PostPage, error) {
	return s.fetchPage(s.annotated(ctx), page)
}

// Group returns the posts of one group. Unknown slugs are ErrNotFound.
func (s *Service) Group(ctx context.Context, slug string, page int) (GroupPage, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return GroupPage{}, ErrNotFound
		}
		return GroupPage{}, err
	}

	base := s.annotated(ctx).Where("inklet_posts.group_id = ?", group.ID)
	postPage, err := s.fetchPage(base, page)
	if err != nil {
		return GroupPage{}, err
	}
	return GroupPage{PostPage: postPage, Group: &group}, nil
}

// Profile returns one author's posts. For an authenticated viewer it also
// reports whether the viewer owns the profile and whether they follow the
// author; both stay false for anonymous viewers.
func (s *Service) Profile(ctx context.Context, username string, page int, viewer *models.User) (ProfilePage, error) {
	var author models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&author).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProfilePage{}, ErrNotFound
		}
		return ProfilePage{}, err
	}

	base := s.annotated(ctx).Where("inklet_posts.author_id = ?", author.ID)
	postPage, err := s.fetchPage(base, page)
	if err != nil {
		return ProfilePage{}, err
	}

	result := ProfilePage{PostPage: postPage, Author: &author}
	if viewer != nil {
		result.IsOwner = viewer.ID == author.ID

		var count int64
		if err := s.db.WithContext(ctx).
			Model(&models.Follow{}).
			Where("user_id = ? AND author_id = ?", viewer.ID, author.ID).
			Count(&count).Error; err != nil {
			return ProfilePage{}, err
		}
		result.Following = count > 0
	}
	return result, nil
}

// PostByID returns a single post with relation counts and its comments
// preloaded together with their authors, oldest comment first.
func (s *Service) PostByID(ctx context.Context, id int64) (*PostDetail, error) {
	var post PostView
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("inklet_posts.*, "+authorCountExpr+", "+groupCountExpr).
		Preload("Author").
		Preload("Group").
		Where("inklet_posts.id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", id).
		Order("created_at").
		Find(&comments).Error; err != nil {
		return nil, err
	}

	return &PostDetail{PostView: post, Comments: comments}, nil
}

// Feed returns the posts of every author the viewer follows, newest-first,
// annotated like the index. An empty feed is a valid page, not an error;
// HasAny drives the empty-state rendering.
func (s *Service) Feed(ctx context.Context, viewer *models.User, page int) (FeedPage, error) {
	followed := s.db.
		Model(&models.Follow{}).
		Select("author_id").
		Where("user_id = ?", viewer.ID)

	base := s.annotated(ctx).Where("inklet_posts.author_id IN (?)", followed)
	postPage, err := s.fetchPage(base, page)
	if err != nil {
		return FeedPage{}, err
	}

	return FeedPage{
		PostPage: postPage,
		HasAny:   postPage.Pagination.TotalItems > 0,
	}, nil
}
