package service

import (
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/repository"

	"gorm.io/gorm"
)

type UserService struct {
	UserRepo *repository.UserRepository
	DB       *gorm.DB
}

func NewUserService(userRepo *repository.UserRepository, db *gorm.DB) *UserService {
	return &UserService{UserRepo: userRepo, DB: db}
}

type ProfileUpdateRequest struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
	Country     string `json:"country"`
}

func (s *UserService) UpdateProfile(userID uint, req ProfileUpdateRequest) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	user.Institution = req.Institution
	user.Country = req.Country

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateAvatar(userID uint, url string) error {
	return s.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("avatar", url).Error
}

// GetPublicProfiles 榜单用的批量档案查询，纯读
func (s *UserService) GetPublicProfiles(ids []uint) ([]model.PublicProfile, error) {
	return s.UserRepo.FindPublicProfiles(ids)
}
