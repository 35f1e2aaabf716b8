package database

type ClassroomRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetRoomByName(name string) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	EnsureRoom(name, externalId string) (Room, error)
	ListRooms() ([]Room, error)
	AddParticipant(roomId, accountId int) error
	IsParticipant(roomId, accountId int) bool
	ListParticipants(roomId int) ([]User, error)
	CreateMessage(msg Message) (Message, error)
	GetMessages(roomId, since, before, limit int) ([]Message, error)
	GetWhiteboard(roomId int) (string, error)
	SetWhiteboard(roomId int, data string) error
}
