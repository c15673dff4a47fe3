package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
)

func newTestPostService() (*PostService, *fakePostRepo, *fakeMedia) {
	repo := newFakePostRepo()
	media := &fakeMedia{}
	return NewPostService(repo, media, discardLogger()), repo, media
}

func strPtr(s string) *string { return &s }

// ===== CREATE TESTS =====

func TestCreate_TextOnly(t *testing.T) {
	svc, _, media := newTestPostService()

	post, err := svc.Create(context.Background(), NewPost{Title: "A", Content: "B"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.ID == "" {
		t.Error("expected an ID")
	}
	if post.Likes != 0 || len(post.Comments) != 0 {
		t.Errorf("new post should have likes=0 and no comments, got %d / %v", post.Likes, post.Comments)
	}
	if post.Image != nil || post.Video != nil {
		t.Error("no uploads should leave both references nil")
	}
	if len(media.saved) != 0 {
		t.Errorf("nothing should be written to the media store, got %d files", len(media.saved))
	}
}

func TestCreate_WithMedia(t *testing.T) {
	svc, _, media := newTestPostService()

	post, err := svc.Create(context.Background(), NewPost{
		Title:   "A",
		Content: "B",
		Image:   &Upload{Filename: "cat.png", MIMEType: "image/png", Body: strings.NewReader("png")},
		Video:   &Upload{Filename: "clip.mp4", MIMEType: "video/mp4", Body: strings.NewReader("mp4")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.Image == nil || *post.Image != "/uploads/fake/cat.png" {
		t.Errorf("Image = %v", post.Image)
	}
	if post.Video == nil || *post.Video != "/uploads/fake/clip.mp4" {
		t.Errorf("Video = %v", post.Video)
	}
	if len(media.saved) != 2 {
		t.Fatalf("expected 2 stored files, got %d", len(media.saved))
	}
	if media.saved[0].mimeType != "image/png" || media.saved[0].body != "png" {
		t.Errorf("first file = %+v", media.saved[0])
	}
}

func TestCreate_MediaFailureStopsCreate(t *testing.T) {
	svc, repo, media := newTestPostService()
	media.err = errors.New("disk full")

	_, err := svc.Create(context.Background(), NewPost{
		Title: "A",
		Image: &Upload{Filename: "cat.png", MIMEType: "image/png", Body: strings.NewReader("x")},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(repo.posts) != 0 {
		t.Error("no post should be stored when its media could not be saved")
	}
}

// The file is already on disk when the store write fails; it stays there.
func TestCreate_StoreFailureOrphansFiles(t *testing.T) {
	svc, repo, media := newTestPostService()
	repo.err = errStoreDown

	_, err := svc.Create(context.Background(), NewPost{
		Title: "A",
		Image: &Upload{Filename: "cat.png", MIMEType: "image/png", Body: strings.NewReader("x")},
	})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected the store error, got %v", err)
	}
	if len(media.saved) != 1 {
		t.Errorf("expected the uploaded file to remain, got %d files", len(media.saved))
	}
}

// ===== LIST / GET TESTS =====

func TestList_NewestFirst(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()
	for _, title := range []string{"first", "second", "third"} {
		if _, err := svc.Create(ctx, NewPost{Title: title}); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}

	posts, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := []string{posts[0].Title, posts[1].Title, posts[2].Title}
	want := []string{"third", "second", "first"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order = %v, want %v", got, want)
			break
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestPostService()

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ===== LIKE / UNLIKE TESTS =====

func TestLikeUnlike_Counts(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()
	post, _ := svc.Create(ctx, NewPost{Title: "A"})

	const n, m = 5, 3
	for i := 0; i < n; i++ {
		if _, err := svc.Like(ctx, post.ID); err != nil {
			t.Fatalf("Like: %v", err)
		}
	}
	var likes int
	for i := 0; i < m; i++ {
		var err error
		if likes, err = svc.Unlike(ctx, post.ID); err != nil {
			t.Fatalf("Unlike: %v", err)
		}
	}
	if likes != n-m {
		t.Errorf("likes = %d, want %d", likes, n-m)
	}
}

func TestUnlike_AtZeroStaysZero(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()
	post, _ := svc.Create(ctx, NewPost{Title: "A"})

	likes, err := svc.Unlike(ctx, post.ID)
	if err != nil {
		t.Fatalf("Unlike at zero should succeed, got %v", err)
	}
	if likes != 0 {
		t.Errorf("likes = %d, want 0", likes)
	}
}

func TestLike_NotFound(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()

	if _, err := svc.Like(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Like: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Unlike(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Unlike: expected ErrNotFound, got %v", err)
	}
}

func TestLike_Concurrent(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()
	post, _ := svc.Create(ctx, NewPost{Title: "A"})

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Like(ctx, post.ID)
		}()
	}
	wg.Wait()

	got, _ := svc.Get(ctx, post.ID)
	if got.Likes != workers {
		t.Errorf("likes = %d, want %d", got.Likes, workers)
	}
}

// ===== COMMENT TESTS =====

func TestAddComment_AppendOnly(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()
	post, _ := svc.Create(ctx, NewPost{Title: "A"})

	texts := []string{"one", "two", "three"}
	var comments []model.Comment
	for _, text := range texts {
		var err error
		if comments, err = svc.AddComment(ctx, post.ID, "x", text); err != nil {
			t.Fatalf("AddComment: %v", err)
		}
	}

	if len(comments) != len(texts) {
		t.Fatalf("got %d comments, want %d", len(comments), len(texts))
	}
	for i, text := range texts {
		if comments[i].Text != text || comments[i].Author != "x" {
			t.Errorf("comments[%d] = %+v", i, comments[i])
		}
	}
}

func TestAddComment_StampsTime(t *testing.T) {
	svc, _, _ := newTestPostService()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()
	post, _ := svc.Create(ctx, NewPost{Title: "A"})

	comments, err := svc.AddComment(ctx, post.ID, "x", "hi")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if !comments[0].CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", comments[0].CreatedAt, fixed)
	}
}

func TestAddComment_NotFound(t *testing.T) {
	svc, _, _ := newTestPostService()

	_, err := svc.AddComment(context.Background(), "missing", "x", "hi")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ===== UPDATE TESTS =====

func TestUpdate_Partial(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()
	post, _ := svc.Create(ctx, NewPost{Title: "A", Content: "B"})
	svc.Like(ctx, post.ID)

	updated, err := svc.Update(ctx, post.ID, model.PostUpdate{Title: strPtr("A2")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "A2" || updated.Content != "B" {
		t.Errorf("got title=%q content=%q", updated.Title, updated.Content)
	}
	if updated.Likes != 1 {
		t.Errorf("Update must not touch likes, got %d", updated.Likes)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestPostService()

	_, err := svc.Update(context.Background(), "missing", model.PostUpdate{Title: strPtr("x")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ===== DELETE TESTS =====

func TestDelete(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()
	post, _ := svc.Create(ctx, NewPost{Title: "A"})

	deleted, err := svc.Delete(ctx, post.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.ID != post.ID {
		t.Errorf("deleted.ID = %q, want %q", deleted.ID, post.ID)
	}

	if _, err := svc.Get(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("post should be gone, got %v", err)
	}
	if _, err := svc.Delete(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	svc, repo, _ := newTestPostService()
	repo.err = errStoreDown
	ctx := context.Background()

	if _, err := svc.List(ctx); !errors.Is(err, errStoreDown) {
		t.Errorf("List: %v", err)
	}
	if _, err := svc.Like(ctx, "p"); !errors.Is(err, errStoreDown) || errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Like: %v", err)
	}
}

// ===== LIFECYCLE SCENARIO =====

func TestPostLifecycle(t *testing.T) {
	svc, _, _ := newTestPostService()
	ctx := context.Background()

	post, err := svc.Create(ctx, NewPost{Title: "A", Content: "B"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.Likes != 0 || len(post.Comments) != 0 {
		t.Fatalf("fresh post = %+v", post)
	}

	for i := 0; i < 3; i++ {
		svc.Like(ctx, post.ID)
	}
	if got, _ := svc.Get(ctx, post.ID); got.Likes != 3 {
		t.Fatalf("after 3 likes: %d", got.Likes)
	}

	var likes int
	for i := 0; i < 5; i++ {
		likes, _ = svc.Unlike(ctx, post.ID)
	}
	if likes != 0 {
		t.Fatalf("after 5 unlikes: %d, want 0", likes)
	}

	comments, err := svc.AddComment(ctx, post.ID, "x", "hi")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if len(comments) != 1 || comments[0].Author != "x" || comments[0].Text != "hi" {
		t.Fatalf("comments = %+v", comments)
	}

	updated, err := svc.Update(ctx, post.ID, model.PostUpdate{Title: strPtr("A2")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "A2" || updated.Content != "B" {
		t.Errorf("updated = %q / %q", updated.Title, updated.Content)
	}
	if len(updated.Comments) != 1 || updated.Likes != 0 {
		t.Errorf("update touched engagement: likes=%d comments=%d", updated.Likes, len(updated.Comments))
	}
}
