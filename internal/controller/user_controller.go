package controller

import (
	"mentor_site_backend/internal/service"
	"mentor_site_backend/internal/util"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService    *service.UserService
	StorageService *service.StorageService
}

func NewUserController(userService *service.UserService, storageService *service.StorageService) *UserController {
	return &UserController{
		UserService:    userService,
		StorageService: storageService,
	}
}

// UpdateProfile godoc
// @Summary 更新个人档案
// @Description 更新昵称、机构、国家等公开档案字段
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.ProfileUpdateRequest true "档案字段"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Router /api/users/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ProfileUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(claims.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Description 上传头像图片并更新档案
// @Tags 用户
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "头像文件"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "文件格式错误"
// @Router /api/users/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "缺少头像文件")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, util.MimeImage) && contentType != util.MimeOctetStream {
		util.BadRequest(ctx, "仅支持图片文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.StorageService.UploadAvatar(ctx.Request.Context(), claims.UserID, fileHeader.Filename, file, fileHeader.Size, contentType)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.UpdateAvatar(claims.UserID, url); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"avatar": url})
}

// PublicProfiles godoc
// @Summary 批量公开档案
// @Description 按 ID 列表批量查询公开档案字段
// @Tags 用户
// @Produce json
// @Param ids query string true "逗号分隔的用户 ID"
// @Success 200 {object} util.Response{data=[]model.PublicProfile} "成功"
// @Router /api/users/profiles [get]
func (c *UserController) PublicProfiles(ctx *gin.Context) {
	raw := ctx.Query("ids")
	if raw == "" {
		util.Success(ctx, []interface{}{})
		return
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			util.BadRequest(ctx, "无效的用户 ID: "+p)
			return
		}
		ids = append(ids, uint(id))
	}

	profiles, err := c.UserService.GetPublicProfiles(ids)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, profiles)
}
