// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/internal/application/pipeline"
	"gruenerator-assist-api/internal/domain/repository"
	"gruenerator-assist-api/internal/interfaces/http/dto"
	"gruenerator-assist-api/pkg/logger"
)

// AssistHandler 助手决策层处理器
type AssistHandler struct {
	pipeline     *pipeline.Pipeline
	heuristic    *classify.HeuristicClassifier
	usageRepo    repository.UsageEventRepository
	pendingStore repository.PendingStateStore
}

// NewAssistHandler 创建助手处理器
func NewAssistHandler(p *pipeline.Pipeline, heuristic *classify.HeuristicClassifier, usageRepo repository.UsageEventRepository, pendingStore repository.PendingStateStore) *AssistHandler {
	return &AssistHandler{
		pipeline:     p,
		heuristic:    heuristic,
		usageRepo:    usageRepo,
		pendingStore: pendingStore,
	}
}

// Context 组装响应上下文
// @Summary 组装响应上下文
// @Description 对用户消息做意图分类、检索与预算裁剪，返回最终指令上下文
// @Tags Assist
// @Accept json
// @Produce json
// @Param body body dto.ContextRequest true "上下文组装请求"
// @Success 200 {object} dto.Response[dto.ContextResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/assist/context [post]
func (h *AssistHandler) Context(c *gin.Context) {
	var req dto.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, req.UserID)
	if req.ThreadID != "" {
		ctx = logger.WithContext(ctx, logger.ThreadIDKey, req.ThreadID)
	}

	pipeReq := req.ToPipelineRequest()
	h.injectPendingBrief(ctx, pipeReq)

	state := h.pipeline.Run(ctx, pipeReq)

	h.storePendingBrief(ctx, pipeReq, state.ResearchBrief)

	// 用量事件落库失败只记日志，不影响响应
	if events := state.DrainEvents(); len(events) > 0 && h.usageRepo != nil {
		if err := h.usageRepo.CreateBatch(ctx, events); err != nil {
			logger.Error(ctx, "用量事件落库失败", err, "count", len(events))
		}
	}

	dto.Success(c, dto.ContextResponseFromState(state))
}

// Classify 仅做意图分类
// @Summary 意图分类
// @Description 只运行规则分类与复杂度评估，不触发检索与 LLM
// @Tags Assist
// @Accept json
// @Produce json
// @Param body body dto.ClassifyRequest true "分类请求"
// @Success 200 {object} dto.Response[dto.ClassifyResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/assist/classify [post]
func (h *AssistHandler) Classify(c *gin.Context) {
	var req dto.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	res := h.heuristic.Classify(req.Message)
	complexity := classify.AssessComplexity(req.Message)

	dto.Success(c, dto.ClassifyResponseFromResult(res, "heuristic", complexity))
}

// injectPendingBrief 把上一轮挂起的研究简报注入用户上下文，读取后即清除。
// 存储故障只记日志，请求照常处理。
func (h *AssistHandler) injectPendingBrief(ctx context.Context, req *pipeline.Request) {
	if h.pendingStore == nil || req.MemoryContext != "" {
		return
	}

	key := pendingBriefKey(req)
	state, err := h.pendingStore.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "挂起状态读取失败", "error", err)
		return
	}
	if len(state) == 0 {
		return
	}

	req.MemoryContext = string(state)
	if err := h.pendingStore.Clear(ctx, key); err != nil {
		logger.Warn(ctx, "挂起状态清除失败", "error", err)
	}
}

// storePendingBrief 把本轮研究简报挂起，供同一线程的后续请求复用
func (h *AssistHandler) storePendingBrief(ctx context.Context, req *pipeline.Request, brief string) {
	if h.pendingStore == nil || brief == "" {
		return
	}

	if err := h.pendingStore.Set(ctx, pendingBriefKey(req), []byte(brief)); err != nil {
		logger.Warn(ctx, "挂起状态写入失败", "error", err)
	}
}

func pendingBriefKey(req *pipeline.Request) string {
	if req.ThreadID == "" {
		return req.UserID
	}
	return req.UserID + ":" + req.ThreadID
}
