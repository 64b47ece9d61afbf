package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reflect_go_server/internal/api/middleware"
	"github.com/qs3c/reflect_go_server/internal/model/dto"
	"github.com/qs3c/reflect_go_server/internal/pkg/response"
	"github.com/qs3c/reflect_go_server/internal/service"
)

type PreferenceHandler struct {
	preferenceService *service.PreferenceService
}

func NewPreferenceHandler(preferenceService *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{
		preferenceService: preferenceService,
	}
}

// Get 获取生成偏好
// GET /api/v1/preferences
func (h *PreferenceHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	pref, err := h.preferenceService.Get(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, pref)
}

// Update 更新生成偏好
// PUT /api/v1/preferences
func (h *PreferenceHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	pref, err := h.preferenceService.Update(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTimezone):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "偏好已更新", pref)
}
