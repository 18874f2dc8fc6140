package service

import (
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/repository"

	"gorm.io/gorm"
)

type CommunityService struct {
	PostRepo *repository.PostRepository
}

func NewCommunityService(postRepo *repository.PostRepository) *CommunityService {
	return &CommunityService{PostRepo: postRepo}
}

type CreatePostRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	Tags    string `json:"tags"`
}

func (s *CommunityService) CreatePost(authorID uint, req CreatePostRequest) (*model.Post, error) {
	post := &model.Post{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: authorID,
		Tags:     req.Tags,
	}
	if err := s.PostRepo.Create(post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *CommunityService) GetPosts(page, limit int, tag string) ([]model.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.PostRepo.FindWithPagination((page-1)*limit, limit, tag)
}

func (s *CommunityService) GetPost(id string) (*model.Post, error) {
	post, err := s.PostRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	// 浏览数尽力而为，失败不影响读
	s.PostRepo.DB.Model(&model.Post{}).
		Where("id = ?", id).
		Update("views", gorm.Expr("views + 1"))
	return post, nil
}
