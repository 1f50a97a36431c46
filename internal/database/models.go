package database

import "time"

// PlaceholderUsername is stored when Telegram supplies no username for a sender.
const PlaceholderUsername = "no_username"

// User represents a Telegram user known to the bot. The primary key is the
// platform-assigned user ID. Name and username are kept in sync with what
// Telegram reports on each message; users are never deleted.
type User struct {
	ID            int64     `db:"id"`
	Username      string    `db:"username"`
	FirstName     string    `db:"first_name"`
	QuestionCount int       `db:"question_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Conversation represents one question/answer exchange between a user and
// the generation API. Turns are only ever hidden via IsVisible, never
// physically deleted, so "clear context" keeps the full history on disk.
type Conversation struct {
	ID        uint   `db:"id"`
	UserID    int64  `db:"user_id"`
	Question  string `db:"question"`
	Answer    string `db:"answer"`
	CreatedAt int64  `db:"created_at"` // seconds since epoch
	IsVisible bool   `db:"is_visible"`
}
