package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ArturMykhailiuk/sello-api/internal/models"
	"github.com/ArturMykhailiuk/sello-api/internal/utils"
	"gorm.io/gorm"
)

// ConnectionStatus describes a user's link to the workflow engine.
type ConnectionStatus struct {
	Enabled       bool   `json:"n8nEnabled"`
	AutoConnected bool   `json:"autoConnected"`
	EngineUserID  string `json:"n8nUserId,omitempty"`
}

// UserService handles marketplace accounts and their engine account link
type UserService interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	APIKey(user *models.User) string
	Connect(userID uint) (*ConnectionStatus, error)
	CheckStatus(userID uint) (*ConnectionStatus, error)
}

type userService struct {
	db            *gorm.DB
	engine        WorkflowEngine
	encryptionKey []byte
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB, engine WorkflowEngine, encryptionKey []byte) UserService {
	return &userService{db: db, engine: engine, encryptionKey: encryptionKey}
}

func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// APIKey returns the user's decrypted engine key. An undecryptable stored
// value counts as no key at all, the read path must not fail over it.
func (s *userService) APIKey(user *models.User) string {
	if user.N8nApiKey == nil || strings.TrimSpace(*user.N8nApiKey) == "" {
		return ""
	}
	return utils.DecryptOrEmpty(s.encryptionKey, *user.N8nApiKey)
}

// Connect links the user to the engine, creating the engine account when
// needed. Already connected users are a no-op.
func (s *userService) Connect(userID uint) (*ConnectionStatus, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &NotFoundError{Resource: "User"}
	}
	if user.N8nEnabled {
		status := &ConnectionStatus{Enabled: true}
		if user.N8nUserID != nil {
			status.EngineUserID = *user.N8nUserID
		}
		return status, nil
	}

	firstName, lastName := splitName(user.Name)
	provision, err := s.engine.FindOrCreateUser(user.Email, firstName, lastName)
	if err != nil {
		return nil, err
	}

	if err := s.saveLink(user.ID, provision.UserID, provision.APIKey); err != nil {
		return nil, err
	}

	return &ConnectionStatus{Enabled: true, EngineUserID: provision.UserID}, nil
}

// CheckStatus reports the link state and silently auto-connects users that
// already exist in the engine. Lookup failures are treated as "not found":
// this endpoint never errors over engine unavailability.
func (s *userService) CheckStatus(userID uint) (*ConnectionStatus, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &NotFoundError{Resource: "User"}
	}
	if user.N8nEnabled {
		return &ConnectionStatus{Enabled: true}, nil
	}

	engineUser, err := s.engine.FindUserByEmail(user.Email)
	if err != nil {
		log.Printf("Engine lookup during status check failed for user %d: %v", userID, err)
		return &ConnectionStatus{Enabled: false}, nil
	}
	if engineUser == nil {
		return &ConnectionStatus{Enabled: false}, nil
	}

	// Existing engine account without a local link: auto-connect with the
	// administrative key, a personal one cannot be minted for them.
	if err := s.saveLink(user.ID, engineUser.ID, s.engine.AdminKey()); err != nil {
		return nil, err
	}

	return &ConnectionStatus{Enabled: true, AutoConnected: true, EngineUserID: engineUser.ID}, nil
}

func (s *userService) saveLink(userID uint, engineUserID, apiKey string) error {
	encrypted, err := utils.Encrypt(s.encryptionKey, apiKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt engine key: %w", err)
	}

	updates := map[string]interface{}{
		"n8n_user_id": engineUserID,
		"n8n_api_key": encrypted,
		"n8n_enabled": true,
	}
	return s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

func splitName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "User", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
