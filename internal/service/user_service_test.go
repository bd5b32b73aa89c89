package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"taskPlanner/internal/auth"
	"taskPlanner/internal/models/user"
	repo "taskPlanner/internal/repository"
	"taskPlanner/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestUserService_Scenario тестирует регистрацию, вход и дубликат
func TestUserService_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	registered, err := f.users.Register(ctx, service.RegisterInput{FullName: "Mario Rossi", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, "Mario", registered.FirstName)
	assert.Equal(t, "Rossi", registered.LastName)
	assert.NotEqual(t, "pw123456", registered.PasswordHash)

	logged, err := f.users.Authenticate(ctx, service.Credentials{FullName: "Mario Rossi", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, logged.ID)

	_, err = f.users.Authenticate(ctx, service.Credentials{FullName: "Mario Rossi", Password: "wrong-pw"})
	assertCode(t, err, service.CodeInvalidCredentials)

	_, err = f.users.Register(ctx, service.RegisterInput{FullName: "Mario Rossi", Password: "another1"})
	assertCode(t, err, service.CodeConflict)
}

// TestUserService_Register тестирует разбор имени и проверку пароля
func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name       string
		input      service.RegisterInput
		expectCode string
		wantFirst  string
		wantLast   string
	}{
		{
			name:      "split on last space",
			input:     service.RegisterInput{FullName: "Anna Maria Bianchi", Password: "pw123456"},
			wantFirst: "Anna Maria",
			wantLast:  "Bianchi",
		},
		{
			name:      "single word gets placeholder",
			input:     service.RegisterInput{FullName: "Cher", Password: "pw123456"},
			wantFirst: "Cher",
			wantLast:  user.LastNamePlaceholder,
		},
		{
			name:      "explicit pair",
			input:     service.RegisterInput{FirstName: " Luca ", LastName: "Verdi", Password: "pw123456"},
			wantFirst: "Luca",
			wantLast:  "Verdi",
		},
		{
			name:       "empty name",
			input:      service.RegisterInput{FullName: "   ", Password: "pw123456"},
			expectCode: service.CodeInvalidArgument,
		},
		{
			name:      "password at bcrypt limit",
			input:     service.RegisterInput{FullName: "Mario Rossi", Password: strings.Repeat("a", service.MaxPasswordBytes)},
			wantFirst: "Mario",
			wantLast:  "Rossi",
		},
		{
			name:       "password over bcrypt limit",
			input:      service.RegisterInput{FullName: "Mario Rossi", Password: strings.Repeat("a", 80)},
			expectCode: service.CodeInvalidArgument,
		},
		{
			name:       "multibyte password over bcrypt limit",
			input:      service.RegisterInput{FullName: "Mario Rossi", Password: strings.Repeat("я", 40)},
			expectCode: service.CodeInvalidArgument,
		},
		{
			name:       "short password",
			input:      service.RegisterInput{FullName: "Mario Rossi", Password: "12345"},
			expectCode: service.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u, err := f.users.Register(context.Background(), tt.input)
			if tt.expectCode != "" {
				assertCode(t, err, tt.expectCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFirst, u.FirstName)
			assert.Equal(t, tt.wantLast, u.LastName)
		})
	}
}

// TestUserService_Authenticate тестирует варианты идентификации
func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	registered := f.register(t, "Mario Rossi")

	u, err := f.users.Authenticate(ctx, service.Credentials{FirstName: "Mario", LastName: "Rossi", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = f.users.Authenticate(ctx, service.Credentials{FullName: "Nobody Here", Password: "pw123456"})
	assertCode(t, err, service.CodeInvalidCredentials)

	_, err = f.users.Authenticate(ctx, service.Credentials{FullName: "Mario Rossi"})
	assertCode(t, err, service.CodeInvalidArgument)

	_, err = f.users.Authenticate(ctx, service.Credentials{FirstName: "Mario", Password: "pw123456"})
	assertCode(t, err, service.CodeInvalidArgument)
}

// TestUserService_ListUsers тестирует сортировку по имени и фамилии
func TestUserService_ListUsers(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Zeno Abate")
	f.register(t, "Anna Verdi")
	f.register(t, "Anna Bruni")

	users, err := f.users.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Anna Bruni", users[0].Name)
	assert.Equal(t, "Anna Verdi", users[1].Name)
	assert.Equal(t, "Zeno Abate", users[2].Name)
}

// TestUserService_DeleteUser тестирует административное удаление
func TestUserService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "Mario Rossi")
	b := f.register(t, "Luca Verdi")
	x := f.createTask(t, a, "X", b)
	_, err := f.tasks.AddComment(ctx, b.ID, x.ID, "from b")
	require.NoError(t, err)

	err = f.users.DeleteUser(ctx, b.ID, "wrong")
	assertCode(t, err, service.CodePermissionDenied)

	err = f.users.DeleteUser(ctx, b.ID+100, adminPassword)
	assertCode(t, err, service.CodeNotFound)

	require.NoError(t, f.users.DeleteUser(ctx, b.ID, adminPassword))

	_, err = f.users.Authenticate(ctx, service.Credentials{FullName: "Luca Verdi", Password: "pw123456"})
	assertCode(t, err, service.CodeInvalidCredentials)

	// задача остаётся у создателя, комментарии удалённого пользователя пропадают
	tasks, err := f.tasks.ListTasks(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, b.ID, tasks[0].AssigneeID)
	assert.Empty(t, tasks[0].AssigneeName)
	assert.Empty(t, tasks[0].Comments)
}

// TestUserService_DeleteUser_NoAdminPassword тестирует, что без настроенного пароля удаление запрещено
func TestUserService_DeleteUser_NoAdminPassword(t *testing.T) {
	mockStore := new(MockStorage)
	svc := service.NewUserService(mockStore, auth.NewPasswordHasher(bcrypt.MinCost), "")

	err := svc.DeleteUser(context.Background(), 1, "")
	assertCode(t, err, service.CodePermissionDenied)
	mockStore.AssertNotCalled(t, "WithTx", mock.Anything)
}

// TestUserService_StorageErrors тестирует проброс ошибок хранилища
func TestUserService_StorageErrors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	mockStore := new(MockStorage)
	mockStore.On("GetUserByDisplayName", mock.Anything, "Mario Rossi").Return(nil, dbErr)
	mockStore.On("ListUsers", mock.Anything).Return(nil, dbErr)
	mockStore.On("WithTx", mock.Anything).Return(nil)

	svc := service.NewUserService(mockStore, auth.NewPasswordHasher(bcrypt.MinCost), adminPassword)

	_, err := svc.Authenticate(ctx, service.Credentials{FullName: "Mario Rossi", Password: "pw123456"})
	assert.ErrorIs(t, err, dbErr)

	_, err = svc.ListUsers(ctx)
	assert.ErrorIs(t, err, dbErr)

	_, err = svc.Register(ctx, service.RegisterInput{FullName: "Mario Rossi", Password: "pw123456"})
	assert.ErrorIs(t, err, dbErr)
	mockStore.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)

	mockStore.AssertExpectations(t)
}

// TestUserService_Register_StorageConflict тестирует конфликт, найденный самим хранилищем
func TestUserService_Register_StorageConflict(t *testing.T) {
	mockStore := new(MockStorage)
	mockStore.On("WithTx", mock.Anything).Return(nil)
	mockStore.On("GetUserByDisplayName", mock.Anything, "Mario Rossi").Return(nil, repo.ErrNotFound)
	mockStore.On("CreateUser", mock.Anything, mock.AnythingOfType("*user.User")).Return(repo.ErrConflict)

	svc := service.NewUserService(mockStore, auth.NewPasswordHasher(bcrypt.MinCost), adminPassword)

	_, err := svc.Register(context.Background(), service.RegisterInput{FullName: "Mario Rossi", Password: "pw123456"})
	assertCode(t, err, service.CodeConflict)
	mockStore.AssertExpectations(t)
}

// TestUserService_Register_SameDisplayName тестирует, что разные пары имени
// не могут дать одно и то же "Имя Фамилия"
func TestUserService_Register_SameDisplayName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.users.Register(ctx, service.RegisterInput{FullName: "Anna Maria Rossi", Password: "pw123456"})
	require.NoError(t, err)

	_, err = f.users.Register(ctx, service.RegisterInput{FirstName: "Anna", LastName: "Maria Rossi", Password: "pw123456"})
	assertCode(t, err, service.CodeConflict)

	logged, err := f.users.Authenticate(ctx, service.Credentials{FullName: "Anna Maria Rossi", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, logged.ID)
}
