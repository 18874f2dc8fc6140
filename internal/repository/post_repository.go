package repository

import (
	"mentor_site_backend/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{DB: db}
}

func (r *PostRepository) Create(post *model.Post) error {
	return r.DB.Create(post).Error
}

func (r *PostRepository) FindByID(id string) (*model.Post, error) {
	var post model.Post
	err := r.DB.Preload("Author").Where("id = ?", id).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) FindWithPagination(offset, limit int, tag string) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	query := r.DB.Model(&model.Post{})
	if tag != "" {
		query = query.Where("tags LIKE ?", "%"+tag+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Preload("Author").
		Find(&posts).Error
	return posts, total, err
}

// IncrementUpvotes 点赞数冗余列随 ContentLike 插入成功后 +1
func (r *PostRepository) IncrementUpvotes(postID string) error {
	return r.DB.Model(&model.Post{}).
		Where("id = ?", postID).
		Update("upvotes", gorm.Expr("upvotes + 1")).Error
}
