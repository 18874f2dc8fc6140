package repository

import (
	"mentor_site_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindAll(page, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.Model(&model.Course{}).Where("published = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) CreateProblem(problem *model.Problem) error {
	return r.DB.Create(problem).Error
}

func (r *CourseRepository) FindProblemByID(id uint) (*model.Problem, error) {
	var problem model.Problem
	err := r.DB.First(&problem, id).Error
	if err != nil {
		return nil, err
	}
	return &problem, nil
}

func (r *CourseRepository) FindProblemsByCourse(courseID uint) ([]model.Problem, error) {
	var problems []model.Problem
	err := r.DB.Where("course_id = ?", courseID).
		Order("`order` ASC, id ASC").
		Find(&problems).Error
	return problems, err
}

func (r *CourseRepository) FindProblemsByIDs(ids []uint) ([]model.Problem, error) {
	if len(ids) == 0 {
		return []model.Problem{}, nil
	}
	var problems []model.Problem
	err := r.DB.Where("id IN ?", ids).Find(&problems).Error
	return problems, err
}

// ProblemIDsByCourse 课程题目集合，榜单 scope 折算用
func (r *CourseRepository) ProblemIDsByCourse(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Problem{}).
		Where("course_id = ?", courseID).
		Pluck("id", &ids).Error
	return ids, err
}
