package repository

import (
	"mentor_site_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_seen", time.Now()).Error
}

// FindPublicProfiles 批量拉取公开档案，榜单当前页挂接展示字段用。
// 纯读操作，顺序不保证，调用方按 ID 建 map 使用。
func (r *UserRepository) FindPublicProfiles(ids []uint) ([]model.PublicProfile, error) {
	if len(ids) == 0 {
		return []model.PublicProfile{}, nil
	}

	var users []model.User
	err := r.DB.Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}

	profiles := make([]model.PublicProfile, len(users))
	for i, u := range users {
		profiles[i] = model.PublicProfile{
			ID:          u.ID,
			DisplayName: u.Name,
			Username:    u.Username,
			Institution: u.Institution,
			Country:     u.Country,
			AvatarURL:   u.Avatar,
			Role:        u.Role,
		}
	}
	return profiles, nil
}
