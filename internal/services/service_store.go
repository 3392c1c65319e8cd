package services

import (
	"errors"

	"github.com/ArturMykhailiuk/sello-api/internal/models"
	"gorm.io/gorm"
)

// ServiceStore exposes the marketplace listings the workflow subsystem needs.
// The full catalog API lives elsewhere.
type ServiceStore interface {
	Exists(serviceID uint) (bool, error)
	GetByID(serviceID uint) (*models.Service, error)
}

type serviceStore struct {
	db *gorm.DB
}

// NewServiceStore creates a new ServiceStore
func NewServiceStore(db *gorm.DB) ServiceStore {
	return &serviceStore{db: db}
}

func (s *serviceStore) Exists(serviceID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Service{}).Where("id = ?", serviceID).Count(&count).Error
	return count > 0, err
}

func (s *serviceStore) GetByID(serviceID uint) (*models.Service, error) {
	var service models.Service
	err := s.db.First(&service, serviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}
