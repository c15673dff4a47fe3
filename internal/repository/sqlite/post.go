package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB is the posts+comments view of a DB.
type PostDB struct {
	conn *sql.DB
}

// Posts returns the repository.PostRepository backed by this database.
func (db *DB) Posts() *PostDB {
	return &PostDB{conn: db.conn}
}

// Create inserts a new post with zero likes and no comments.
//
// NULLABLE COLUMNS:
// post.Image and post.Video are *string. nullable() turns a nil pointer into
// a NULL argument and a non-nil one into its string.
func (db *PostDB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()
	post.Likes = 0
	post.Comments = []model.Comment{}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, image, video, likes, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		post.ID,
		post.Title,
		post.Content,
		nullable(post.Image),
		nullable(post.Video),
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// List returns every post, newest first, each with its comments.
//
// Two queries instead of one per post: all posts, then all comments grouped
// in memory by post_id. rowid breaks ties between posts created in the same
// instant so the later insert still comes first.
func (db *PostDB) List(ctx context.Context) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, content, image, video, likes, created_at
		 FROM posts
		 ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		index[p.ID] = len(posts)
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	rows.Close()

	crows, err := db.conn.QueryContext(ctx,
		`SELECT post_id, author, text, created_at FROM comments ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer crows.Close()

	for crows.Next() {
		var postID string
		var c model.Comment
		if err := crows.Scan(&postID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		if i, ok := index[postID]; ok {
			posts[i].Comments = append(posts[i].Comments, c)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return posts, nil
}

// GetByID returns apperror.ErrNotFound if the post doesn't exist.
func (db *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	return getPost(ctx, db.conn, id)
}

// UpdateFields changes title and/or content and returns the updated post.
//
// COALESCE(?, title) keeps the stored value when the argument is NULL,
// which is what a nil *string becomes. Likes, media and comments are never
// touched by this statement.
func (db *PostDB) UpdateFields(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = COALESCE(?, title), content = COALESCE(?, content)
		 WHERE id = ?`,
		nullable(update.Title),
		nullable(update.Content),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("post", id)
	}

	return getPost(ctx, db.conn, id)
}

// Like adds one to the counter in a single statement.
//
// ATOMIC COUNTERS:
// `likes = likes + 1` is evaluated by SQLite under its write lock, so two
// concurrent likes always produce +2. Reading the row in Go, adding one and
// writing it back would let one of them overwrite the other.
// RETURNING hands back the new value without a second query.
func (db *PostDB) Like(ctx context.Context, id string) (int, error) {
	var likes int
	err := db.conn.QueryRowContext(ctx,
		`UPDATE posts SET likes = likes + 1 WHERE id = ? RETURNING likes`, id,
	).Scan(&likes)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("post", id)
		}
		return 0, fmt.Errorf("sqlite: liking post %s: %w", id, err)
	}
	return likes, nil
}

// Unlike takes one away from the counter unless it is already zero.
//
// No row back from the guarded UPDATE means either the post is missing or
// likes was 0. The follow-up SELECT tells the two apart.
func (db *PostDB) Unlike(ctx context.Context, id string) (int, error) {
	var likes int
	err := db.conn.QueryRowContext(ctx,
		`UPDATE posts SET likes = likes - 1 WHERE id = ? AND likes > 0 RETURNING likes`, id,
	).Scan(&likes)
	if err == nil {
		return likes, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("sqlite: unliking post %s: %w", id, err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT likes FROM posts WHERE id = ?`, id,
	).Scan(&likes)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("post", id)
		}
		return 0, fmt.Errorf("sqlite: reading likes of post %s: %w", id, err)
	}
	return likes, nil
}

// AddComment appends a comment and returns the post's full comment list.
//
// The existence check, the insert and the re-read share one transaction so
// the returned list is exactly the state the insert produced.
func (db *PostDB) AddComment(ctx context.Context, id string, comment model.Comment) ([]model.Comment, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op, so always defer it.
	defer tx.Rollback()

	if err := postExists(ctx, tx, id); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comments (post_id, author, text, created_at) VALUES (?, ?, ?, ?)`,
		id,
		comment.Author,
		comment.Text,
		comment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: adding comment to post %s: %w", id, err)
	}

	comments, err := listComments(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing comment: %w", err)
	}

	return comments, nil
}

// Delete removes the post and every comment on it, returning the removed post.
func (db *PostDB) Delete(ctx context.Context, id string) (*model.Post, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	post, err := getPost(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	// foreign_keys(1) makes ON DELETE CASCADE remove the comments too,
	// but the explicit delete keeps this correct on a connection without it.
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return nil, fmt.Errorf("sqlite: deleting comments of post %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing delete: %w", err)
	}

	return post, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	var p model.Post
	var image, video sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &image, &video, &p.Likes, &p.CreatedAt); err != nil {
		return nil, err
	}
	if image.Valid {
		p.Image = &image.String
	}
	if video.Valid {
		p.Video = &video.String
	}
	p.Comments = []model.Comment{}
	return &p, nil
}

func getPost(ctx context.Context, q querier, id string) (*model.Post, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, title, content, image, video, likes, created_at
		 FROM posts WHERE id = ?`,
		id,
	)
	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	comments, err := listComments(ctx, q, id)
	if err != nil {
		return nil, err
	}
	post.Comments = comments

	return post, nil
}

func postExists(ctx context.Context, q querier, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, id).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("post", id)
		}
		return fmt.Errorf("sqlite: checking post %s: %w", id, err)
	}
	return nil
}

func listComments(ctx context.Context, q querier, postID string) ([]model.Comment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT author, text, created_at FROM comments WHERE post_id = ? ORDER BY id`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}
