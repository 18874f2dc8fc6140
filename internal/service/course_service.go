package service

import (
	"errors"
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/repository"
	"mentor_site_backend/internal/util"

	"gorm.io/gorm"
)

// CourseService 课程与题目目录
type CourseService struct {
	CourseRepo *repository.CourseRepository
}

func NewCourseService(courseRepo *repository.CourseRepository) *CourseService {
	return &CourseService{CourseRepo: courseRepo}
}

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type CreateProblemRequest struct {
	Title      string           `json:"title" binding:"required"`
	Statement  string           `json:"statement"`
	Difficulty model.Difficulty `json:"difficulty"`
	Solution   string           `json:"solution"`
	Order      int              `json:"order"`
}

func (s *CourseService) CreateCourse(authorID uint, req CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		Title:       req.Title,
		Description: req.Description,
		AuthorID:    authorID,
		Published:   true,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) CreateProblem(courseID uint, req CreateProblemRequest) (*model.Problem, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	difficulty := req.Difficulty
	switch difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		difficulty = model.DifficultyMedium
	}

	problem := &model.Problem{
		CourseID:   courseID,
		Title:      req.Title,
		Statement:  req.Statement,
		Difficulty: difficulty,
		Solution:   req.Solution,
		Order:      req.Order,
	}
	if err := s.CourseRepo.CreateProblem(problem); err != nil {
		return nil, err
	}
	return problem, nil
}

func (s *CourseService) GetCourses(page, limit int) ([]model.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.CourseRepo.FindAll(page, limit)
}

func (s *CourseService) GetCourse(id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	problems, err := s.CourseRepo.FindProblemsByCourse(id)
	if err != nil {
		return nil, err
	}
	course.Problems = problems
	return course, nil
}

func (s *CourseService) GetProblem(id uint) (*model.Problem, error) {
	problem, err := s.CourseRepo.FindProblemByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProblemNotFound
		}
		return nil, err
	}
	return problem, nil
}
