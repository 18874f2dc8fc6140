package controller

import (
	"mentor_site_backend/internal/service"
	"mentor_site_backend/internal/util"
	"mentor_site_backend/pkg/logger"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RanklistController struct {
	RanklistService *service.RanklistService
	Hub             *service.RanklistHub
}

func NewRanklistController(ranklistService *service.RanklistService, hub *service.RanklistHub) *RanklistController {
	return &RanklistController{
		RanklistService: ranklistService,
		Hub:             hub,
	}
}

func parseScope(ctx *gin.Context) service.Scope {
	if courseID := util.MustParseUint(ctx.Query("courseId")); courseID != 0 {
		return service.CourseScope(courseID)
	}
	return service.GlobalScope()
}

// Ranklist godoc
// @Summary 榜单分页
// @Description 按总解题数降序、首解时间升序排名；过滤只作用于当前页
// @Tags 榜单
// @Produce json
// @Param courseId query int false "课程 ID，缺省为全局榜"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量"
// @Param search query string false "昵称/用户名搜索"
// @Param institution query string false "机构过滤"
// @Param country query string false "国家过滤"
// @Success 200 {object} util.Response{data=service.RanklistPage} "成功"
// @Router /api/ranklist [get]
func (c *RanklistController) Ranklist(ctx *gin.Context) {
	scope := parseScope(ctx)

	var filters service.RanklistFilters
	if err := ctx.ShouldBindQuery(&filters); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

	result, err := c.RanklistService.Rank(scope, filters, page, limit, "request")
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Top godoc
// @Summary Top-N 挂件
// @Description 原始路径直接折算的前 N 名，排序语义与分页榜单一致
// @Tags 榜单
// @Produce json
// @Param courseId query int false "课程 ID，缺省为全局榜"
// @Param limit query int false "名次数量" default(10)
// @Success 200 {object} util.Response{data=[]service.RanklistEntry} "成功"
// @Router /api/ranklist/top [get]
func (c *RanklistController) Top(ctx *gin.Context) {
	scope := parseScope(ctx)
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	entries, err := c.RanklistService.Top(scope, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// MyRank godoc
// @Summary 本人名次
// @Description 当前用户在指定范围内的名次，未上榜时 rank 为 0
// @Tags 榜单
// @Produce json
// @Security BearerAuth
// @Param courseId query int false "课程 ID，缺省为全局榜"
// @Success 200 {object} util.Response{data=service.RanklistEntry} "成功"
// @Router /api/ranklist/me [get]
func (c *RanklistController) MyRank(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	entry, err := c.RanklistService.MyRank(parseScope(ctx), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entry)
}

// Live godoc
// @Summary 榜单在线推送
// @Description 升级为 websocket，订阅当前页的实时重算推送；上行 PAGE 消息换页/换过滤
// @Tags 榜单
// @Param courseId query int false "课程 ID，缺省为全局榜"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量"
// @Param search query string false "昵称/用户名搜索"
// @Param institution query string false "机构过滤"
// @Param country query string false "国家过滤"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/ranklist/live [get]
func (c *RanklistController) Live(ctx *gin.Context) {
	scope := parseScope(ctx)

	var filters service.RanklistFilters
	if err := ctx.ShouldBindQuery(&filters); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

	if err := c.Hub.ServeWS(ctx.Writer, ctx.Request, scope, filters, page, limit); err != nil {
		// 升级失败时 gorilla 已经写过错误响应，这里只记日志
		logger.Log.Warn("ranklist websocket upgrade failed", zap.Error(err))
	}
}
