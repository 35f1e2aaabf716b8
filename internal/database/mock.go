package database

import (
	"github.com/stretchr/testify/mock"
)

type MockClassroomRepository struct {
	mock.Mock
}

func (m *MockClassroomRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockClassroomRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockClassroomRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockClassroomRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockClassroomRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockClassroomRepository) GetRoomByName(name string) (Room, error) {
	args := m.Called(name)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockClassroomRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockClassroomRepository) EnsureRoom(name, externalId string) (Room, error) {
	args := m.Called(name, externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockClassroomRepository) ListRooms() ([]Room, error) {
	args := m.Called()
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockClassroomRepository) AddParticipant(roomId, accountId int) error {
	args := m.Called(roomId, accountId)
	return args.Error(0)
}
func (m *MockClassroomRepository) IsParticipant(roomId, accountId int) bool {
	args := m.Called(roomId, accountId)
	return args.Bool(0)
}
func (m *MockClassroomRepository) ListParticipants(roomId int) ([]User, error) {
	args := m.Called(roomId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockClassroomRepository) CreateMessage(msg Message) (Message, error) {
	args := m.Called(msg)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockClassroomRepository) GetMessages(roomId, since, before, limit int) ([]Message, error) {
	args := m.Called(roomId, since, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockClassroomRepository) GetWhiteboard(roomId int) (string, error) {
	args := m.Called(roomId)
	return args.String(0), args.Error(1)
}
func (m *MockClassroomRepository) SetWhiteboard(roomId int, data string) error {
	args := m.Called(roomId, data)
	return args.Error(0)
}
