// Package schema defines the records exchanged with the Games Play backend.
package schema

// Meta holds the fields the server maintains on every record.
type Meta struct {
	ID        string `json:"_id,omitempty"`
	OwnerID   string `json:"_ownerId,omitempty"`
	CreatedOn int64  `json:"_createdOn,omitempty"`
	UpdatedOn int64  `json:"_updatedOn,omitempty"`
}

// Game is an entry of the games collection.
type Game struct {
	Meta
	Title    string `json:"title"`
	Category string `json:"category"`
	MaxLevel string `json:"maxLevel"`
	ImageURL string `json:"imageUrl"`
	Summary  string `json:"summary"`
}

// Comment is an entry of the comments collection, attached to a game.
type Comment struct {
	Meta
	GameID  string `json:"gameId"`
	Comment string `json:"comment"`
}

// User is a public user profile. It never carries credentials.
type User struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Session is returned by register and login.
type Session struct {
	User
	AccessToken string `json:"accessToken"`
}

// Credentials is the login and register payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// Deleted is the marker returned after a record is removed.
type Deleted struct {
	DeletedOn int64 `json:"_deletedOn"`
}
