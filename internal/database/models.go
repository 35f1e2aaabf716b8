package database

import (
	"time"

	"github.com/edusphere/go-classroom/internal/types"
)

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	UserType     types.UserType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id         int
	ExternalId string
	Name       string
	// Whiteboard is the room's serialized action log, a JSON array. The
	// server treats it as an opaque blob with atomic get/set.
	Whiteboard string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Message struct {
	Id        int
	RoomId    int
	UserId    int
	Username  string
	Content   string
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
	UserType     types.UserType
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}
