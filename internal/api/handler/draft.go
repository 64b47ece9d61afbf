package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reflect_go_server/internal/api/middleware"
	"github.com/qs3c/reflect_go_server/internal/pkg/response"
	"github.com/qs3c/reflect_go_server/internal/service"
)

type DraftHandler struct {
	draftService *service.DraftService
}

func NewDraftHandler(draftService *service.DraftService) *DraftHandler {
	return &DraftHandler{
		draftService: draftService,
	}
}

// List 获取草稿列表
// GET /api/v1/drafts
func (h *DraftHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, err := h.draftService.List(userID, pageSize, (page-1)*pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"items": items})
}

// GetByWeek 按周获取草稿
// GET /api/v1/drafts/:year/:week
func (h *DraftHandler) GetByWeek(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	year, week, valid := parseWeekParams(c)
	if !valid {
		response.ParamError(c, "无效的周次参数")
		return
	}

	detail, err := h.draftService.GetByWeek(userID, year, week)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDraftNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, detail)
}

// Export 导出草稿归档
// POST /api/v1/drafts/:year/:week/export
func (h *DraftHandler) Export(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	year, week, valid := parseWeekParams(c)
	if !valid {
		response.ParamError(c, "无效的周次参数")
		return
	}

	resp, err := h.draftService.Export(userID, year, week)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDraftNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrArchiveDisabled):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "导出成功", resp)
}

func parseWeekParams(c *gin.Context) (year, week int, valid bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2100 {
		return 0, 0, false
	}
	week, err = strconv.Atoi(c.Param("week"))
	if err != nil || week < 1 || week > 53 {
		return 0, 0, false
	}
	return year, week, true
}
