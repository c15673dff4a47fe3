package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/repository"
)

var _ repository.PostRepository = (*PostStore)(nil)

// PostStore is the blogs collection.
type PostStore struct {
	coll *mongodriver.Collection
}

// Posts returns the repository.PostRepository backed by this database.
func (db *DB) Posts() *PostStore {
	return &PostStore{coll: db.db.Collection(postsCollection)}
}

// afterUpdate makes FindOneAndUpdate return the document as modified.
func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func (s *PostStore) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()
	post.Likes = 0
	post.Comments = []model.Comment{}

	if _, err := s.coll.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("mongo: creating post: %w", err)
	}
	return nil
}

func (s *PostStore) List(ctx context.Context) ([]model.Post, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing posts: %w", err)
	}

	posts := []model.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("mongo: decoding posts: %w", err)
	}
	for i := range posts {
		normalize(&posts[i])
	}
	return posts, nil
}

func (s *PostStore) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, notFoundOr(err, id, "getting post")
	}
	normalize(&post)
	return &post, nil
}

// UpdateFields $sets only the fields present in the update.
func (s *PostStore) UpdateFields(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error) {
	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if len(set) == 0 {
		return s.GetByID(ctx, id)
	}

	var post model.Post
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, afterUpdate()).Decode(&post)
	if err != nil {
		return nil, notFoundOr(err, id, "updating post")
	}
	normalize(&post)
	return &post, nil
}

type likesOnly struct {
	Likes int `bson:"likes"`
}

func (s *PostStore) Like(ctx context.Context, id string) (int, error) {
	var doc likesOnly
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"likes": 1}},
		afterUpdate().SetProjection(bson.M{"likes": 1}),
	).Decode(&doc)
	if err != nil {
		return 0, notFoundOr(err, id, "liking post")
	}
	return doc.Likes, nil
}

// Unlike decrements only documents whose likes is still above zero. When the
// filter matches nothing, a plain read separates "at zero" from "missing".
func (s *PostStore) Unlike(ctx context.Context, id string) (int, error) {
	var doc likesOnly
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "likes": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"likes": -1}},
		afterUpdate().SetProjection(bson.M{"likes": 1}),
	).Decode(&doc)
	if err == nil {
		return doc.Likes, nil
	}
	if !errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, fmt.Errorf("mongo: unliking post %s: %w", id, err)
	}

	err = s.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"likes": 1}),
	).Decode(&doc)
	if err != nil {
		return 0, notFoundOr(err, id, "reading likes of post")
	}
	return doc.Likes, nil
}

func (s *PostStore) AddComment(ctx context.Context, id string, comment model.Comment) ([]model.Comment, error) {
	var doc struct {
		Comments []model.Comment `bson:"comments"`
	}
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"comments": comment}},
		afterUpdate().SetProjection(bson.M{"comments": 1}),
	).Decode(&doc)
	if err != nil {
		return nil, notFoundOr(err, id, "adding comment to post")
	}
	if doc.Comments == nil {
		doc.Comments = []model.Comment{}
	}
	return doc.Comments, nil
}

func (s *PostStore) Delete(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, notFoundOr(err, id, "deleting post")
	}
	normalize(&post)
	return &post, nil
}

// normalize replaces a missing comments array with an empty one so the JSON
// output is always [] and never null.
func normalize(post *model.Post) {
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}
}

func notFoundOr(err error, id, action string) error {
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return apperror.NotFound("post", id)
	}
	return fmt.Errorf("mongo: %s %s: %w", action, id, err)
}
