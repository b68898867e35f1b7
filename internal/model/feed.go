package model

import "time"

// FeedPost is a short status update owned by exactly one account.
//
// OwnerID and CreatedOn are assigned by the server when the post is created
// and never change afterwards. The owner is exposed as "user_profile".
type FeedPost struct {
	ID         int64     `json:"id"           db:"id"`
	OwnerID    int64     `json:"user_profile" db:"owner_id"`
	StatusText string    `json:"status_text"  db:"status_text"`
	CreatedOn  time.Time `json:"created_on"   db:"created_on"`
}
