package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/reflect_go_server/internal/api/middleware"
	"github.com/qs3c/reflect_go_server/internal/model/dto"
	"github.com/qs3c/reflect_go_server/internal/pkg/response"
	"github.com/qs3c/reflect_go_server/internal/service"
)

type OperationHandler struct {
	operationService *service.OperationService
}

func NewOperationHandler(operationService *service.OperationService) *OperationHandler {
	return &OperationHandler{
		operationService: operationService,
	}
}

// Enqueue 手动触发生成任务
// POST /api/v1/operations
func (h *OperationHandler) Enqueue(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.EnqueueOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.operationService.EnqueueManual(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotaExceeded):
			response.QuotaError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	if resp.Deduplicated {
		response.SuccessWithMessage(c, "该周已有任务或草稿", resp)
		return
	}
	response.SuccessWithMessage(c, "任务已创建", resp)
}

// GetStatus 查询任务状态
// GET /api/v1/operations/:id
func (h *OperationHandler) GetStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	operationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的任务ID")
		return
	}

	status, err := h.operationService.GetStatus(userID, operationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOperationNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrNotOwner):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, status)
}

// List 查询任务历史
// GET /api/v1/operations
func (h *OperationHandler) List(c *gin.Context) {
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

	items, err := h.operationService.ListByUser(userID, pageSize, (page-1)*pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"items": items})
}
