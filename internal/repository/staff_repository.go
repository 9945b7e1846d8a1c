package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"cataid-backend/internal/db"
	"cataid-backend/internal/model"
)

type StaffRepository interface {
	CreateStaff(staff *model.Staff) error
	GetStaffByID(id uint) (*model.Staff, error)
	GetStaffByEmail(email string) (*model.Staff, error)
}

type staffRepository struct{}

func NewStaffRepository() StaffRepository {
	return &staffRepository{}
}

func (r *staffRepository) CreateStaff(staff *model.Staff) error {
	staff.Email = strings.ToLower(strings.TrimSpace(staff.Email))
	return db.GetDB().Create(staff).Error
}

func (r *staffRepository) GetStaffByID(id uint) (*model.Staff, error) {
	var staff model.Staff
	err := db.GetDB().First(&staff, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) GetStaffByEmail(email string) (*model.Staff, error) {
	var staff model.Staff
	err := db.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}
