package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopnotify/internal/constants"
	"shopnotify/internal/model"
	"shopnotify/pkg/logger"
)

// CreditLedger 工作区积分账本
type CreditLedger interface {
	Create(ctx context.Context, workspaceID, amount int64, reason string, expireAfterDays *int) (*model.WorkspaceCredit, error)
	Balance(ctx context.Context, workspaceID int64) (int64, error)
}

// CreditHandler 积分处理器
type CreditHandler struct {
	credits CreditLedger
	logger  *logger.Logger
}

// NewCreditHandler 创建积分处理器
func NewCreditHandler(credits CreditLedger, logger *logger.Logger) *CreditHandler {
	return &CreditHandler{
		credits: credits,
		logger:  logger,
	}
}

type grantCreditRequest struct {
	Amount          int64  `json:"amount"`
	Reason          string `json:"reason"`
	ExpireAfterDays *int   `json:"expireAfterDays"`
}

// GrantCredit 为工作区发放积分
func (h *CreditHandler) GrantCredit(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}

	var req grantCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, constants.ErrInvalidRequest)
		return
	}
	if req.ExpireAfterDays != nil && *req.ExpireAfterDays <= 0 {
		respondError(c, http.StatusBadRequest, constants.ErrInvalidParams+": expireAfterDays")
		return
	}

	credit, err := h.credits.Create(c.Request.Context(), workspaceID, req.Amount, req.Reason, req.ExpireAfterDays)
	if err != nil {
		h.logger.Warn("发放积分失败", "workspace_id", workspaceID, "error", err)
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, constants.SuccessCreate, credit)
}

// GetBalance 获取工作区积分余额
func (h *CreditHandler) GetBalance(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}

	balance, err := h.credits.Balance(c.Request.Context(), workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, constants.SuccessGet, gin.H{
		"workspaceId": workspaceID,
		"credit":      balance,
	})
}

func workspaceIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, constants.ErrInvalidParams+": id")
		return 0, false
	}
	return id, true
}
