package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/repository"
)

// MediaStore is what PostService needs from the media package.
// *media.DiskStore satisfies it; tests use an in-memory fake.
type MediaStore interface {
	Save(ctx context.Context, filename, mimeType string, r io.Reader) (string, error)
}

// Upload is one file part of a new post. The handler fills it from the
// multipart form; the service never sees *multipart.FileHeader.
type Upload struct {
	Filename string
	MIMEType string
	Body     io.Reader
}

// NewPost is the input to PostService.Create. Image and Video are nil when
// the request carried no file for that field.
type NewPost struct {
	Title   string
	Content string
	Image   *Upload
	Video   *Upload
}

// PostService is the lifecycle of a blog post: creation with media,
// likes, comments, edits and deletion.
type PostService struct {
	posts  repository.PostRepository
	media  MediaStore
	now    func() time.Time
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, media MediaStore, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		media:  media,
		now:    time.Now,
		logger: logger,
	}
}

// Create stores the attached files, then the post that references them.
//
// ORPHANED FILES:
// Files are written before the post. If the post write fails, the files stay
// on disk with nothing pointing at them. Nothing cleans them up.
func (s *PostService) Create(ctx context.Context, in NewPost) (*model.Post, error) {
	post := &model.Post{
		Title:   in.Title,
		Content: in.Content,
	}

	var err error
	if post.Image, err = s.store(ctx, "image", in.Image); err != nil {
		return nil, err
	}
	if post.Video, err = s.store(ctx, "video", in.Video); err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("title", post.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/post: creating: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.Bool("image", post.Image != nil),
		slog.Bool("video", post.Video != nil),
	)
	return post, nil
}

// store saves one upload and returns its reference, or nil for no upload.
func (s *PostService) store(ctx context.Context, field string, up *Upload) (*string, error) {
	if up == nil {
		return nil, nil
	}
	ref, err := s.media.Save(ctx, up.Filename, up.MIMEType, up.Body)
	if err != nil {
		s.logger.Error("failed to store media",
			slog.String("field", field),
			slog.String("filename", up.Filename),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/post: storing %s: %w", field, err)
	}
	return &ref, nil
}

// List returns every post, newest first. There is no pagination.
func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/post: listing: %w", err)
	}
	return posts, nil
}

// Get returns apperror.ErrNotFound for an unknown id.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("get", id, err)
	}
	return post, nil
}

// Update changes title and/or content. An update with neither field set
// returns the post unchanged (or NotFound).
func (s *PostService) Update(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error) {
	post, err := s.posts.UpdateFields(ctx, id, update)
	if err != nil {
		return nil, s.fail("update", id, err)
	}
	s.logger.Info("post updated", slog.String("id", id))
	return post, nil
}

// Like returns the new like count.
func (s *PostService) Like(ctx context.Context, id string) (int, error) {
	likes, err := s.posts.Like(ctx, id)
	if err != nil {
		return 0, s.fail("like", id, err)
	}
	s.logger.Info("post liked", slog.String("id", id), slog.Int("likes", likes))
	return likes, nil
}

// Unlike never takes likes below zero. Unliking a post at zero succeeds and
// reports 0.
func (s *PostService) Unlike(ctx context.Context, id string) (int, error) {
	likes, err := s.posts.Unlike(ctx, id)
	if err != nil {
		return 0, s.fail("unlike", id, err)
	}
	s.logger.Info("post unliked", slog.String("id", id), slog.Int("likes", likes))
	return likes, nil
}

// AddComment appends a comment stamped with the current time and returns
// the post's full comment sequence. Author and text are kept verbatim.
func (s *PostService) AddComment(ctx context.Context, id, author, text string) ([]model.Comment, error) {
	comment := model.Comment{
		Author:    author,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	comments, err := s.posts.AddComment(ctx, id, comment)
	if err != nil {
		return nil, s.fail("comment on", id, err)
	}
	s.logger.Info("comment added", slog.String("id", id), slog.Int("comments", len(comments)))
	return comments, nil
}

// Delete removes the post and its comments. Media files are left on disk.
func (s *PostService) Delete(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.posts.Delete(ctx, id)
	if err != nil {
		return nil, s.fail("delete", id, err)
	}
	s.logger.Info("post deleted", slog.String("id", id))
	return post, nil
}

// fail passes NotFound through untouched and logs anything else as a
// store failure. A missing post is a normal outcome, not an error to log.
func (s *PostService) fail(action, id string, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	s.logger.Error("failed to "+action+" post",
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("service/post: %s %s: %w", action, id, err)
}
