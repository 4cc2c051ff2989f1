// internal/domain/user/address_service.go
package user

import (
	"errors"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// AddressService handles address-book business logic
type AddressService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB, cfg *config.Config) *AddressService {
	return &AddressService{
		db:     db,
		config: cfg,
	}
}

// CreateAddressRequest represents address creation data
type CreateAddressRequest struct {
	Label        string `json:"label"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country" binding:"omitempty,len=2"` // ISO 2-letter code
	Phone        string `json:"phone"`
	IsDefault    bool   `json:"is_default"`
}

// UpdateAddressRequest represents address update data
type UpdateAddressRequest struct {
	Label        *string `json:"label"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	Region       *string `json:"region"`
	PostalCode   *string `json:"postal_code"`
	Country      *string `json:"country" binding:"omitempty,len=2"`
	Phone        *string `json:"phone"`
	IsDefault    *bool   `json:"is_default"`
}

// GetUserAddresses retrieves all active addresses for a user
func (s *AddressService) GetUserAddresses(userID uint) ([]Address, error) {
	var addresses []Address

	err := s.db.
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, apperrors.Infrastructure("retrieve addresses", err)
	}

	return addresses, nil
}

// GetAddress retrieves a specific address scoped to the given user
func (s *AddressService) GetAddress(userID, addressID uint) (*Address, error) {
	var address Address
	result := s.db.Where("id = ? AND user_id = ?", addressID, userID).First(&address)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("address")
		}
		return nil, apperrors.Infrastructure("retrieve address", result.Error)
	}

	return &address, nil
}

// CreateAddress creates a new address for a user
func (s *AddressService) CreateAddress(userID uint, req *CreateAddressRequest) (*Address, error) {
	country := req.Country
	if country == "" {
		country = "PE"
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Only one default address per user
	if req.IsDefault {
		if err := tx.Model(&Address{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			tx.Rollback()
			return nil, apperrors.Infrastructure("unset default addresses", err)
		}
	}

	address := Address{
		UserID:       userID,
		Label:        req.Label,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		Region:       req.Region,
		PostalCode:   req.PostalCode,
		Country:      country,
		Phone:        req.Phone,
		IsDefault:    req.IsDefault,
		IsActive:     true,
	}

	if err := tx.Create(&address).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Infrastructure("create address", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Infrastructure("commit address creation", err)
	}

	return &address, nil
}

// UpdateAddress updates an address owned by the user
func (s *AddressService) UpdateAddress(userID, addressID uint, req *UpdateAddressRequest) (*Address, error) {
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Label != nil {
		updates["label"] = *req.Label
	}
	if req.AddressLine1 != nil {
		updates["address_line1"] = *req.AddressLine1
	}
	if req.AddressLine2 != nil {
		updates["address_line2"] = *req.AddressLine2
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Region != nil {
		updates["region"] = *req.Region
	}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.IsDefault != nil && *req.IsDefault {
		if err := tx.Model(&Address{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			tx.Rollback()
			return nil, apperrors.Infrastructure("unset default addresses", err)
		}
		updates["is_default"] = true
	}

	if len(updates) > 0 {
		if err := tx.Model(address).Updates(updates).Error; err != nil {
			tx.Rollback()
			return nil, apperrors.Infrastructure("update address", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Infrastructure("commit address update", err)
	}

	return s.GetAddress(userID, addressID)
}

// DeleteAddress deactivates an address owned by the user. Orders keep their
// own frozen snapshot, so past orders are unaffected.
func (s *AddressService) DeleteAddress(userID, addressID uint) error {
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return err
	}

	if err := s.db.Model(address).
		Updates(map[string]interface{}{"is_active": false, "is_default": false}).Error; err != nil {
		return apperrors.Infrastructure("delete address", err)
	}

	return nil
}
