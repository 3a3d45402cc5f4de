package services

import (
	"errors"
	"strings"

	"github.com/estivenmendezr98/TAREAS/internal/models"
	"github.com/estivenmendezr98/TAREAS/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrInvalidRole       = errors.New("invalid role")
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

// UpdateUserRequest leaves the password untouched when it is blank.
type UpdateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password"`
	Role     string `json:"role" binding:"required"`
}

type UserService interface {
	GetUsers(db *gorm.DB) ([]models.User, error)
	CreateUser(db *gorm.DB, req CreateUserRequest) (*models.User, error)
	UpdateUser(db *gorm.DB, id uuid.UUID, req UpdateUserRequest) (*models.User, error)
}

type UserServiceImpl struct {
	users      repositories.UserRepository
	bcryptCost int
}

func NewUserService(bcryptCost int) *UserServiceImpl {
	return &UserServiceImpl{users: repositories.NewUserRepository(), bcryptCost: bcryptCost}
}

func (s *UserServiceImpl) GetUsers(db *gorm.DB) ([]models.User, error) {
	return s.users.List(db)
}

func (s *UserServiceImpl) CreateUser(db *gorm.DB, req CreateUserRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	username := strings.TrimSpace(req.Username)
	if err := s.checkUsernameFree(db, username, uuid.Nil); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Password: hashed, Role: role}
	if err := s.users.Create(db, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserServiceImpl) UpdateUser(db *gorm.DB, id uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	if !models.ValidRole(req.Role) {
		return nil, ErrInvalidRole
	}
	username := strings.TrimSpace(req.Username)
	if err := s.checkUsernameFree(db, username, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"username": username, "role": req.Role}
	if strings.TrimSpace(req.Password) != "" {
		hashed, err := HashPassword(req.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		fields["password"] = hashed
	}
	return s.users.Update(db, id, fields)
}

func (s *UserServiceImpl) checkUsernameFree(db *gorm.DB, username string, self uuid.UUID) error {
	existing, err := s.users.FindByUsername(db, username)
	switch {
	case err == nil && existing.ID != self:
		return ErrDuplicateUsername
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return err
	}
}
