// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
//
// Every struct carries two sets of tags:
//   - `json:"..."` controls the HTTP wire shape
//   - `bson:"..."` controls the MongoDB document shape
//
// The SQLite repository ignores both and maps columns by hand.
package model

import "time"

// User represents a registered account.
//
// The password is stored and serialised verbatim when the plaintext password
// policy is active. GET / dumps these records unauthenticated, exactly as
// the service always has, so treat this struct as public data.
type User struct {
	ID        string    `json:"_id"       bson:"_id"`
	Username  string    `json:"username"  bson:"username"`
	Password  string    `json:"password"  bson:"password"`
	Role      string    `json:"role"      bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
