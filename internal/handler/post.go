package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/service"
)

// maxMemory is how much of a multipart upload ParseMultipartForm keeps in
// RAM; larger parts spill to temp files. The overall size is capped
// separately by the body-size middleware.
const maxMemory = 10 << 20

// PostService is the part of *service.PostService the handler uses.
type PostService interface {
	Create(ctx context.Context, in service.NewPost) (*model.Post, error)
	List(ctx context.Context) ([]model.Post, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	Update(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error)
	Like(ctx context.Context, id string) (int, error)
	Unlike(ctx context.Context, id string) (int, error)
	AddComment(ctx context.Context, id, author, text string) ([]model.Comment, error)
	Delete(ctx context.Context, id string) (*model.Post, error)
}

// PostHandler serves the blog routes.
type PostHandler struct {
	posts  PostService
	logger *slog.Logger
}

func NewPostHandler(posts PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type postResponse struct {
	Message string      `json:"message"`
	Post    *model.Post `json:"post"`
}

// HandleUpload creates a post from a multipart form.
//
// HTTP: POST /upload
// FORM: title, content (text fields); image, video (optional single files)
// 201 → {"message": "Blog uploaded successfully", "post": {...}}
//
// Each file's Content-Type header picks its bucket, so a PDF sent as "image"
// still lands under /uploads/videos.
func (h *PostHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.logger.Warn("invalid upload form", slog.String("error", err.Error()))
		if !isTooLarge(err) {
			err = apperror.ValidationFailed("body", "Invalid multipart form")
		}
		writeError(w, err, errorMessages{})
		return
	}
	// Temp files backing large parts live until RemoveAll.
	defer r.MultipartForm.RemoveAll()

	in := service.NewPost{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
	}

	image, closeImage, err := formUpload(r, "image")
	if err != nil {
		h.uploadFailed(w, err)
		return
	}
	defer closeImage()
	in.Image = image

	video, closeVideo, err := formUpload(r, "video")
	if err != nil {
		h.uploadFailed(w, err)
		return
	}
	defer closeVideo()
	in.Video = video

	post, err := h.posts.Create(r.Context(), in)
	if err != nil {
		h.uploadFailed(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, postResponse{
		Message: "Blog uploaded successfully",
		Post:    post,
	})
}

func (h *PostHandler) uploadFailed(w http.ResponseWriter, err error) {
	writeError(w, err, errorMessages{Internal: "Error uploading blog"})
}

// formUpload opens the first file of a multipart field. A missing field is
// not an error: it returns a nil Upload and a no-op close.
func formUpload(r *http.Request, field string) (*service.Upload, func(), error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	return &service.Upload{
		Filename: header.Filename,
		MIMEType: contentType(header),
		Body:     f,
	}, func() { f.Close() }, nil
}

func contentType(h *multipart.FileHeader) string {
	if ct := h.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// HandleList returns every post, newest first.
//
// HTTP: GET /blogs
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		writeError(w, err, errorMessages{Internal: "Error fetching blogs"})
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post.
//
// HTTP: GET /blogs/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, errorMessages{NotFound: "Blog not found", Internal: "Error fetching blog"})
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type likesResponse struct {
	Message string `json:"message"`
	Likes   int    `json:"likes"`
}

// HandleLike adds one like.
//
// HTTP: PUT /blogs/{id}/like
// 200 → {"message": "Liked successfully", "likes": 4}
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	likes, err := h.posts.Like(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, errorMessages{NotFound: "Blog not found", Internal: "Error liking post"})
		return
	}
	writeJSON(w, http.StatusOK, likesResponse{Message: "Liked successfully", Likes: likes})
}

// HandleUnlike removes one like, stopping at zero.
//
// HTTP: PUT /blogs/{id}/unlike
func (h *PostHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	likes, err := h.posts.Unlike(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, errorMessages{NotFound: "Blog not found", Internal: "Error unliking post"})
		return
	}
	writeJSON(w, http.StatusOK, likesResponse{Message: "Unliked successfully", Likes: likes})
}

type commentRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

func (c *commentRequest) fromForm(form url.Values) {
	c.User = form.Get("user")
	c.Text = form.Get("text")
}

type commentsResponse struct {
	Message  string          `json:"message"`
	Comments []model.Comment `json:"comments"`
}

// HandleComment appends a comment.
//
// HTTP: POST /blogs/{id}/comment
// REQUEST BODY: {"user": "x", "text": "hi"} (or the same fields form-encoded)
// 201 → {"message": "Comment added", "comments": [...]}
func (h *PostHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		h.logger.Warn("invalid comment body", slog.String("error", err.Error()))
		writeError(w, err, errorMessages{})
		return
	}

	comments, err := h.posts.AddComment(r.Context(), chi.URLParam(r, "id"), req.User, req.Text)
	if err != nil {
		writeError(w, err, errorMessages{NotFound: "Blog not found", Internal: "Error adding comment"})
		return
	}
	writeJSON(w, http.StatusCreated, commentsResponse{Message: "Comment added", Comments: comments})
}

// updateRequest uses pointers so an absent field can be told apart from an
// empty string: {"title": ""} clears the title, {} leaves it alone.
type updateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (u *updateRequest) fromForm(form url.Values) {
	u.Title = formValue(form, "title")
	u.Content = formValue(form, "content")
}

type blogResponse struct {
	Message string      `json:"message"`
	Blog    *model.Post `json:"blog"`
}

// HandleUpdate edits title and/or content.
//
// HTTP: PUT /blogs/{id}
// 200 → {"message": "Blog updated successfully", "blog": {...}}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeBody(r, &req); err != nil {
		h.logger.Warn("invalid update body", slog.String("error", err.Error()))
		writeError(w, err, errorMessages{})
		return
	}

	post, err := h.posts.Update(r.Context(), chi.URLParam(r, "id"), model.PostUpdate{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, err, errorMessages{NotFound: "Blog not found", Internal: "Error updating blog"})
		return
	}
	writeJSON(w, http.StatusOK, blogResponse{Message: "Blog updated successfully", Blog: post})
}

// HandleDelete removes a post and its comments.
//
// HTTP: DELETE /blogs/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.posts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, errorMessages{NotFound: "Blog not found", Internal: "Error deleting blog"})
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "Blog deleted successfully"})
}
