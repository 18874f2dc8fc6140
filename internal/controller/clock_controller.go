package controller

import (
	"mentor_site_backend/internal/util"
	"mentor_site_backend/pkg/clocksync"
	"time"

	"github.com/gin-gonic/gin"
)

// ClockController 对时端点。客户端用往返中点法估算与服务端的时钟偏移，
// 倒计时一律先折算成服务端时间再渲染。
type ClockController struct {
	Syncer *clocksync.Syncer // 配置了上游时间源时非空
}

func NewClockController(syncer *clocksync.Syncer) *ClockController {
	return &ClockController{Syncer: syncer}
}

// @Summary 服务端时间
// @Description 返回服务端当前时间（毫秒时间戳），供客户端对时
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/time [get]
func (c *ClockController) ServerTime(ctx *gin.Context) {
	now := time.Now()
	if c.Syncer != nil {
		now = c.Syncer.Now()
	}
	util.Success(ctx, gin.H{
		"serverTime": util.TimeToMillis(now),
	})
}
