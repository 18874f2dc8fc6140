package controller

import (
	"errors"
	"mentor_site_backend/internal/service"
	"mentor_site_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// CreateCourse godoc
// @Summary 创建课程
// @Description 导师或管理员创建课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateCourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(claims.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// ListCourses godoc
// @Summary 课程列表
// @Description 分页查询已发布课程
// @Tags 课程
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	courses, total, err := c.CourseService.GetCourses(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  courses,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetCourse godoc
// @Summary 课程详情
// @Description 返回课程及其题目列表（题解正文不在其中）
// @Tags 课程
// @Produce json
// @Param id path int true "课程 ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	course, err := c.CourseService.GetCourse(id)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, course)
}

// CreateProblem godoc
// @Summary 创建题目
// @Description 在课程下创建题目，难度影响题解解锁延时
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程 ID"
// @Param body body service.CreateProblemRequest true "题目信息"
// @Success 201 {object} util.Response{data=model.Problem} "创建成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/problems [post]
func (c *CourseController) CreateProblem(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	var req service.CreateProblemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	problem, err := c.CourseService.CreateProblem(courseID, req)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, problem)
}

// GetProblem godoc
// @Summary 题目详情
// @Description 返回题面，不包含题解正文
// @Tags 课程
// @Produce json
// @Param id path int true "题目 ID"
// @Success 200 {object} util.Response{data=model.Problem} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/problems/{id} [get]
func (c *CourseController) GetProblem(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	problem, err := c.CourseService.GetProblem(id)
	if err != nil {
		if errors.Is(err, util.ErrProblemNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, problem)
}
