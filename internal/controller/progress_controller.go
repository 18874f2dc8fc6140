package controller

import (
	"errors"
	"mentor_site_backend/internal/service"
	"mentor_site_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	Cache           *service.ProgressCacheService
}

func NewProgressController(progressService *service.ProgressService, cache *service.ProgressCacheService) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		Cache:           cache,
	}
}

// Attempt godoc
// @Summary 记录做题
// @Description 幂等记录做题事实并启动解锁倒计时，重复调用不重置计时
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目 ID"
// @Success 200 {object} util.Response{data=model.ViewState} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/problems/{id}/attempt [post]
func (c *ProgressController) Attempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	problemID := util.MustParseUint(ctx.Param("id"))

	state, err := c.ProgressService.RecordAttempt(claims.UserID, problemID)
	if err != nil {
		if errors.Is(err, util.ErrProblemNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}

// Solve godoc
// @Summary 记录解题
// @Description 幂等记录解题事实：立即解锁、取消倒计时、累加榜单，重复调用不重复计数
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目 ID"
// @Success 200 {object} util.Response{data=model.ViewState} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/problems/{id}/solve [post]
func (c *ProgressController) Solve(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	problemID := util.MustParseUint(ctx.Param("id"))

	state, err := c.ProgressService.RecordSolve(claims.UserID, problemID)
	if err != nil {
		if errors.Is(err, util.ErrProblemNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}

// Unlock godoc
// @Summary 上报解锁
// @Description 倒计时到点后客户端上报，把解锁标记落盘；未到点返回 409
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目 ID"
// @Success 200 {object} util.Response{data=model.ViewState} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 409 {object} util.Response "尚未到解锁时间"
// @Router /api/problems/{id}/unlock [post]
func (c *ProgressController) Unlock(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	problemID := util.MustParseUint(ctx.Param("id"))

	state, err := c.ProgressService.PersistUnlock(claims.UserID, problemID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrProblemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSolutionLocked):
			util.Conflict(ctx, "题解尚未解锁")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}

// State godoc
// @Summary 题目进度状态
// @Description 由持久事实推导当前状态，未解锁时带剩余倒计时（毫秒）
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目 ID"
// @Success 200 {object} util.Response{data=model.ViewState} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/problems/{id}/state [get]
func (c *ProgressController) State(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	problemID := util.MustParseUint(ctx.Param("id"))

	state, err := c.ProgressService.ViewState(claims.UserID, problemID)
	if err != nil {
		if errors.Is(err, util.ErrProblemNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}

// Solution godoc
// @Summary 获取题解
// @Description 解锁后才下发题解正文；未解锁返回 423 和带剩余倒计时的状态
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目 ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 423 {object} util.Response "题解未解锁"
// @Router /api/problems/{id}/solution [get]
func (c *ProgressController) Solution(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	problemID := util.MustParseUint(ctx.Param("id"))

	solution, state, err := c.ProgressService.Solution(claims.UserID, problemID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrProblemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSolutionLocked):
			// 返回状态让客户端直接渲染倒计时
			ctx.JSON(423, util.Response{
				Code:    423,
				Message: "题解尚未解锁",
				Data:    state,
			})
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"solution": solution,
		"state":    state,
	})
}

// Summary godoc
// @Summary 权威进度汇总
// @Description 全部题目的权威进度（已做/已解锁/已解/倒计时中），客户端用它覆盖本地缓存
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.ProgressSummary} "成功"
// @Router /api/progress/summary [get]
func (c *ProgressController) Summary(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.ProgressService.Summary(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// CachedProgress godoc
// @Summary 进度缓存快照
// @Description 返回该身份的缓存镜像（已做题/已解锁集合、deadline 表），仅供权威结果到达前垫首屏
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.CachedProgress} "成功"
// @Router /api/progress/cached [get]
func (c *ProgressController) CachedProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	snapshot, err := c.Cache.Snapshot(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, snapshot)
}

// KnownIdentities godoc
// @Summary 设备已知身份
// @Description 返回该设备登录过的身份列表，最近使用的在前
// @Tags 进度
// @Produce json
// @Param X-Device-Id header string true "设备标识"
// @Success 200 {object} util.Response{data=[]service.KnownIdentity} "成功"
// @Router /api/progress/identities [get]
func (c *ProgressController) KnownIdentities(ctx *gin.Context) {
	deviceID := ctx.GetHeader("X-Device-Id")
	if deviceID == "" {
		util.BadRequest(ctx, "缺少 X-Device-Id")
		return
	}

	identities, err := c.Cache.KnownIdentities(ctx.Request.Context(), deviceID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, identities)
}

// ClearIdentities godoc
// @Summary 清空设备已知身份
// @Description 显式清空该设备的已知身份列表
// @Tags 进度
// @Produce json
// @Param X-Device-Id header string true "设备标识"
// @Success 200 {object} util.Response "成功"
// @Router /api/progress/identities [delete]
func (c *ProgressController) ClearIdentities(ctx *gin.Context) {
	deviceID := ctx.GetHeader("X-Device-Id")
	if deviceID == "" {
		util.BadRequest(ctx, "缺少 X-Device-Id")
		return
	}

	if err := c.Cache.ClearIdentities(ctx.Request.Context(), deviceID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
