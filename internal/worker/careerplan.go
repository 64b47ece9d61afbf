package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qs3c/reflect_go_server/internal/llm"
	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

// CareerPlanHandler 职业发展建议生成。
// 基于最近几周的草稿和历史洞察，产出一段发展建议并沉淀为新的洞察记录。
type CareerPlanHandler struct {
	draftRepo   *repository.DraftRepository
	insightRepo *repository.InsightRepository
	gateway     llm.Gateway
	maxRetries  int
}

func NewCareerPlanHandler(
	draftRepo *repository.DraftRepository,
	insightRepo *repository.InsightRepository,
	gateway llm.Gateway,
	maxRetries int,
) *CareerPlanHandler {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &CareerPlanHandler{
		draftRepo:   draftRepo,
		insightRepo: insightRepo,
		gateway:     gateway,
		maxRetries:  maxRetries,
	}
}

func (h *CareerPlanHandler) JobType() string {
	return model.JobTypeCareerPlan
}

func (h *CareerPlanHandler) Validate(op *model.Operation) error {
	if op.UserID == 0 {
		return fmt.Errorf("%w: 缺少用户", ErrInvalidInput)
	}
	return nil
}

const careerPlanSystemPrompt = `你是职业发展顾问。根据用户最近几周的工作记录和长期关注点，
给出一段具体可执行的职业发展建议。直接输出建议正文，不超过 300 字。`

func (h *CareerPlanHandler) Process(ctx context.Context, op *model.Operation, report ProgressReporter) (model.JSONMap, error) {
	report(pubsub.StepLoadingContext)

	drafts, err := h.draftRepo.ListByUser(op.UserID, 4, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent drafts: %w", err)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: 还没有任何周报草稿，无法生成发展建议", ErrInvalidInput)
	}

	insights, err := h.insightRepo.GetRecent(op.UserID, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to load insights: %w", err)
	}

	report(pubsub.StepGenerating)
	plan, err := h.generate(ctx, drafts, insights)
	if err != nil {
		return nil, err
	}

	report(pubsub.StepSaving)
	record := &model.InsightRecord{
		UserID: op.UserID,
		Kind:   "career-plan",
		Text:   plan,
	}
	if err := h.insightRepo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to save career plan: %w", err)
	}

	return model.JSONMap{
		"insight_id":  record.ID,
		"plan":        plan,
		"draft_count": len(drafts),
	}, nil
}

func (h *CareerPlanHandler) generate(ctx context.Context, drafts []*model.DraftReflection, insights []*model.InsightRecord) (string, error) {
	var sb strings.Builder
	sb.WriteString("最近几周的工作记录：\n")
	for _, draft := range drafts {
		sb.WriteString(fmt.Sprintf("%d 年第 %d 周完成：%s\n",
			draft.Year, draft.WeekNumber, strings.Join(draft.Content.Done, "；")))
	}
	if len(insights) > 0 {
		sb.WriteString("\n长期关注点：\n")
		for _, insight := range insights {
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", insight.Kind, insight.Text))
		}
	}

	var lastErr error
	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		text, err := h.gateway.Generate(ctx, llm.GenerateRequest{
			System: careerPlanSystemPrompt,
			Prompt: sb.String(),
		})
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = llm.ErrEmptyCompletion
		}

		if ctx.Err() != nil {
			break
		}
		if attempt < h.maxRetries {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}
