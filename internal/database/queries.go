package database

import (
	"time"
)

func (db *PgClassroomRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, user_type, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, username, email, user_type",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.UserType,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.UserType,
	)

	return u, err
}

func (db *PgClassroomRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email, user_type",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.UserType,
	)

	return u, err
}

func (db *PgClassroomRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, user_type, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.UserType,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgClassroomRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, user_type FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.UserType,
	)

	return user, err
}

func (db *PgClassroomRepository) GetRoomByName(name string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, whiteboard, created_at, updated_at FROM rooms "+
			"WHERE name = $1 LIMIT 1",
		name,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.Whiteboard,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgClassroomRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, whiteboard, created_at, updated_at FROM rooms "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.Whiteboard,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

// EnsureRoom creates the room if it does not exist and returns it either
// way. The no-op update on conflict makes the insert return the existing
// row instead of nothing.
func (db *PgClassroomRepository) EnsureRoom(name, externalId string) (Room, error) {
	res := db.conn.QueryRow(
		"INSERT INTO rooms (external_id, name, created_at, updated_at) VALUES ($1, $2, $3, $3) "+
			"ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name "+
			"RETURNING id, external_id, name, whiteboard, created_at, updated_at",
		externalId,
		name,
		time.Now().UTC(),
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.Whiteboard,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgClassroomRepository) ListRooms() ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, name, created_at, updated_at FROM rooms ORDER BY updated_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err = rows.Scan(&room.Id, &room.ExternalId, &room.Name, &room.CreatedAt, &room.UpdatedAt); err != nil {
			break
		}

		rooms = append(rooms, room)
	}
	return rooms, err
}

func (db *PgClassroomRepository) AddParticipant(roomId, accountId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO room_participants (room_id, account_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (room_id, account_id) DO NOTHING",
		roomId,
		accountId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgClassroomRepository) IsParticipant(roomId, accountId int) bool {
	res := db.conn.QueryRow(
		"SELECT id FROM room_participants WHERE room_id = $1 AND account_id = $2 LIMIT 1",
		roomId,
		accountId,
	)

	var id int
	return res.Scan(&id) == nil
}

func (db *PgClassroomRepository) ListParticipants(roomId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.user_type FROM room_participants AS p "+
			"JOIN accounts AS a ON p.account_id = a.id WHERE p.room_id = $1",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.Id, &u.Username, &u.UserType); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

func (db *PgClassroomRepository) CreateMessage(msg Message) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (room_id, account_id, content, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, room_id, account_id, content, created_at",
		msg.RoomId,
		msg.UserId,
		msg.Content,
		msg.CreatedAt,
	)

	var saved Message
	err := res.Scan(
		&saved.Id,
		&saved.RoomId,
		&saved.UserId,
		&saved.Content,
		&saved.CreatedAt,
	)

	return saved, err
}

func (db *PgClassroomRepository) GetMessages(roomId, since, before, limit int) ([]Message, error) {
	var upper, lower int = 1<<31 - 1, 0
	if before > 0 {
		upper = before - 1
	}

	if since > 0 {
		lower = since
	}

	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.room_id, m.account_id, a.username, m.content, m.created_at FROM messages m "+
			"JOIN accounts a ON m.account_id = a.id "+
			"WHERE m.room_id = $1 AND m.id BETWEEN $2 AND $3 ORDER BY m.created_at, m.id LIMIT $4",
		roomId,
		lower,
		upper,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.RoomId, &msg.UserId, &msg.Username, &msg.Content, &msg.CreatedAt); err != nil {
			break
		}

		messages = append(messages, msg)
	}
	return messages, err
}

func (db *PgClassroomRepository) GetWhiteboard(roomId int) (string, error) {
	row := db.conn.QueryRow("SELECT whiteboard FROM rooms WHERE id = $1 LIMIT 1", roomId)

	var data string
	err := row.Scan(&data)

	return data, err
}

func (db *PgClassroomRepository) SetWhiteboard(roomId int, data string) error {
	_, err := db.conn.Exec(
		"UPDATE rooms SET whiteboard = $2, updated_at = $3 WHERE id = $1",
		roomId,
		data,
		time.Now().UTC(),
	)

	return err
}
