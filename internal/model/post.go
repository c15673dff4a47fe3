package model

import "time"

// Post is a blog post together with its engagement data.
//
// Image and Video hold media references ("/uploads/images/<name>"), never the
// bytes. They are nil when the upload carried no file for that field, which
// serialises as JSON null.
//
// Likes is never negative: the repositories only decrement under a likes > 0 guard.
// Comments only grows; there is no operation that reorders or removes one.
type Post struct {
	ID        string    `json:"_id"       bson:"_id"`
	Title     string    `json:"title"     bson:"title"`
	Content   string    `json:"content"   bson:"content"`
	Image     *string   `json:"image"     bson:"image"`
	Video     *string   `json:"video"     bson:"video"`
	Likes     int       `json:"likes"     bson:"likes"`
	Comments  []Comment `json:"comments"  bson:"comments"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Comment is owned by its parent Post and has no identity of its own.
//
// The author travels as "user" on the wire because that is the field name
// clients have always posted.
type Comment struct {
	Author    string    `json:"user"      bson:"user"`
	Text      string    `json:"text"      bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// PostUpdate is a partial update of the mutable text fields.
// A nil field means "leave as is".
type PostUpdate struct {
	Title   *string
	Content *string
}

// Empty reports whether the update would change nothing.
func (u PostUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil
}
