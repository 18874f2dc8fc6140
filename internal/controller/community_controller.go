package controller

import (
	"errors"
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/service"
	"mentor_site_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CommunityController struct {
	CommunityService *service.CommunityService
	BallotService    *service.BallotService
}

func NewCommunityController(communityService *service.CommunityService, ballotService *service.BallotService) *CommunityController {
	return &CommunityController{
		CommunityService: communityService,
		BallotService:    ballotService,
	}
}

// CreatePost godoc
// @Summary 发帖
// @Description 创建社区帖子
// @Tags 社区
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreatePostRequest true "帖子内容"
// @Success 201 {object} util.Response{data=model.Post} "创建成功"
// @Router /api/posts [post]
func (c *CommunityController) CreatePost(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	post, err := c.CommunityService.CreatePost(claims.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

// ListPosts godoc
// @Summary 帖子列表
// @Description 分页查询帖子，可按标签过滤
// @Tags 社区
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param tag query string false "标签"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/posts [get]
func (c *CommunityController) ListPosts(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	tag := ctx.Query("tag")

	posts, total, err := c.CommunityService.GetPosts(page, limit, tag)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  posts,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetPost godoc
// @Summary 帖子详情
// @Tags 社区
// @Produce json
// @Param id path string true "帖子 ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "帖子不存在"
// @Router /api/posts/{id} [get]
func (c *CommunityController) GetPost(ctx *gin.Context) {
	post, err := c.CommunityService.GetPost(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	liked := false
	if claims := util.GetUserFromContext(ctx); claims != nil {
		liked = c.BallotService.HasLiked(claims.UserID, "post", post.ID)
	}

	util.Success(ctx, gin.H{
		"post":  post,
		"liked": liked,
	})
}

// LikePost godoc
// @Summary 点赞帖子
// @Description 一次性点赞：重复点赞返回 already=true，计数不再增加
// @Tags 社区
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子 ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "帖子不存在"
// @Router /api/posts/{id}/like [post]
func (c *CommunityController) LikePost(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	already, err := c.BallotService.LikeContent(claims.UserID, "post", ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrPostNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"already": already})
}

// VoteRequest 题目投票请求
type VoteRequest struct {
	Vote string `json:"vote" binding:"required,oneof=up down"`
}

// VoteProblem godoc
// @Summary 题目投票
// @Description 终身一票：重复投票返回 already=true，票数不变
// @Tags 社区
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目 ID"
// @Param body body VoteRequest true "票值 up/down"
// @Success 200 {object} util.Response{data=service.VoteResult} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/problems/{id}/vote [post]
func (c *CommunityController) VoteProblem(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req VoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.BallotService.CastVote(claims.UserID, util.MustParseUint(ctx.Param("id")), model.VoteValue(req.Vote))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrProblemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidVoteValue):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// ProblemVotes godoc
// @Summary 题目票数
// @Description 按票值分组的当前计数；带 token 时附带本人是否已投
// @Tags 社区
// @Produce json
// @Param id path int true "题目 ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/problems/{id}/votes [get]
func (c *CommunityController) ProblemVotes(ctx *gin.Context) {
	problemID := util.MustParseUint(ctx.Param("id"))

	counts, err := c.BallotService.VoteCounts(problemID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	voted := false
	if claims := util.GetUserFromContext(ctx); claims != nil {
		voted = c.BallotService.HasVoted(problemID, claims.UserID)
	}

	util.Success(ctx, gin.H{
		"counts": counts,
		"voted":  voted,
	})
}
