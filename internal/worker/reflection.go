package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/internal/llm"
	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/service"
)

// ReflectionHandler 周报草稿生成。
// 流程：检查数据源 -> 归并活动 -> 加载历史上下文 -> 生成 -> 落库。
type ReflectionHandler struct {
	consolidationSvc *service.ConsolidationService
	draftRepo        *repository.DraftRepository
	insightRepo      *repository.InsightRepository
	userRepo         *repository.UserRepository
	gateway          llm.Gateway
	maxRetries       int
}

func NewReflectionHandler(
	consolidationSvc *service.ConsolidationService,
	draftRepo *repository.DraftRepository,
	insightRepo *repository.InsightRepository,
	userRepo *repository.UserRepository,
	gateway llm.Gateway,
	maxRetries int,
) *ReflectionHandler {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReflectionHandler{
		consolidationSvc: consolidationSvc,
		draftRepo:        draftRepo,
		insightRepo:      insightRepo,
		userRepo:         userRepo,
		gateway:          gateway,
		maxRetries:       maxRetries,
	}
}

// reflectionInput 入队时固化的任务参数。处理时只认这份快照，
// 入队之后的偏好修改不影响已排队的任务。
type reflectionInput struct {
	WeekNumber          int      `json:"week_number"`
	Year                int      `json:"year"`
	Trigger             string   `json:"trigger"`
	IncludeIntegrations []string `json:"include_integrations"`
}

func decodeReflectionInput(data model.JSONMap) (reflectionInput, error) {
	var input reflectionInput
	raw, err := json.Marshal(data)
	if err != nil {
		return input, err
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, err
	}
	return input, nil
}

func (h *ReflectionHandler) JobType() string {
	return model.JobTypeWeeklyReflection
}

func (h *ReflectionHandler) Validate(op *model.Operation) error {
	if op.UserID == 0 {
		return fmt.Errorf("%w: 缺少用户", ErrInvalidInput)
	}
	if op.WeekNumber < 1 || op.WeekNumber > 53 {
		return fmt.Errorf("%w: 周号 %d 超出范围", ErrInvalidInput, op.WeekNumber)
	}
	if op.Year < 2000 || op.Year > 2100 {
		return fmt.Errorf("%w: 年份 %d 超出范围", ErrInvalidInput, op.Year)
	}
	return nil
}

func (h *ReflectionHandler) Process(ctx context.Context, op *model.Operation, report ProgressReporter) (model.JSONMap, error) {
	report(pubsub.StepCheckingSources)

	input, err := decodeReflectionInput(op.InputData)
	if err != nil {
		return nil, fmt.Errorf("%w: 任务参数解析失败: %v", ErrInvalidInput, err)
	}

	user, err := h.userRepo.GetByID(op.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	report(pubsub.StepConsolidating)
	consolidated, err := h.consolidationSvc.ConsolidateWeek(ctx, user, op.Year, op.WeekNumber, input.IncludeIntegrations)
	if err != nil {
		return nil, fmt.Errorf("failed to consolidate week: %w", err)
	}

	report(pubsub.StepLoadingContext)
	insights, err := h.insightRepo.GetRecent(op.UserID, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to load insights: %w", err)
	}
	prevDraft := h.loadPreviousDraft(op.UserID, op.Year, op.WeekNumber)

	report(pubsub.StepGenerating)

	// 可信度降级：有数据源不可用，或整周没有任何活动
	reducedConfidence := len(consolidated.Unavailable) > 0 || len(consolidated.Themes) == 0

	var content model.DraftContent
	if len(consolidated.Themes) == 0 {
		// 没有任何素材时不浪费一次生成调用
		content = model.DraftContent{
			Done:  []string{},
			Next:  []string{},
			Notes: "本周未采集到任何活动数据，草稿内容为空。",
		}
	} else {
		content, err = h.generate(ctx, consolidated, insights, prevDraft)
		if err != nil {
			return nil, err
		}
	}

	report(pubsub.StepSaving)

	// 落库前再查一次：入队后可能有并发任务先完成了同一周
	exists, err := h.draftRepo.ExistsForWeek(op.UserID, op.Year, op.WeekNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing draft: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %d 年第 %d 周", ErrDuplicateDraft, op.Year, op.WeekNumber)
	}

	draft := &model.DraftReflection{
		UserID:            op.UserID,
		WeekNumber:        op.WeekNumber,
		Year:              op.Year,
		Content:           content,
		ReducedConfidence: reducedConfidence,
		SourceOperationID: op.ID,
	}
	// 检查和写入之间还有窗口，唯一索引上的插入才是最终裁决
	inserted, err := h.draftRepo.Create(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	if !inserted {
		return nil, fmt.Errorf("%w: %d 年第 %d 周", ErrDuplicateDraft, op.Year, op.WeekNumber)
	}

	return model.JSONMap{
		"draft_id":            draft.ID,
		"week_number":         op.WeekNumber,
		"year":                op.Year,
		"content":             content,
		"theme_count":         len(consolidated.Themes),
		"unavailable_sources": consolidated.Unavailable,
		"reduced_confidence":  reducedConfidence,
	}, nil
}

// loadPreviousDraft 上一周的草稿，用于 Next -> Done 的叙事衔接；没有就算了
func (h *ReflectionHandler) loadPreviousDraft(userID int64, year, week int) *model.DraftReflection {
	prevYear, prevWeek := year, week-1
	if prevWeek < 1 {
		prevYear, prevWeek = year-1, 52
	}
	draft, err := h.draftRepo.GetByWeek(userID, prevYear, prevWeek)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load previous draft for user %d: %v", userID, err)
		}
		return nil
	}
	return draft
}

// generate 调用生成服务，指数退避重试
func (h *ReflectionHandler) generate(ctx context.Context, consolidated *service.ConsolidationResult, insights []*model.InsightRecord, prevDraft *model.DraftReflection) (model.DraftContent, error) {
	prompt := buildReflectionPrompt(consolidated, insights, prevDraft)

	var lastErr error
	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		text, err := h.gateway.Generate(ctx, llm.GenerateRequest{
			System: reflectionSystemPrompt,
			Prompt: prompt,
		})
		if err == nil {
			content, parseErr := parseDraftContent(text)
			if parseErr == nil {
				return content, nil
			}
			lastErr = parseErr
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return model.DraftContent{}, fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
		}
		if attempt < h.maxRetries {
			select {
			case <-ctx.Done():
				return model.DraftContent{}, fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return model.DraftContent{}, fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

const reflectionSystemPrompt = `你是周报写作助手。根据用户本周的活动记录，生成一份周报草稿。
输出必须是 JSON 对象，格式为 {"done": ["..."], "next": ["..."], "notes": "..."}。
done 列出本周完成的事项，next 列出下周计划，notes 是补充说明。不要输出 JSON 以外的内容。`

func buildReflectionPrompt(consolidated *service.ConsolidationResult, insights []*model.InsightRecord, prevDraft *model.DraftReflection) string {
	var sb strings.Builder

	sb.WriteString("本周活动记录：\n")
	for _, theme := range consolidated.Themes {
		sb.WriteString(fmt.Sprintf("- [%s] %s (%s)\n",
			theme.Category, theme.EvidenceText, theme.Timestamp.Format("01-02 15:04")))
	}

	if len(consolidated.Unavailable) > 0 {
		sb.WriteString(fmt.Sprintf("\n以下数据源本周不可用，记录可能不完整：%s\n",
			strings.Join(consolidated.Unavailable, "、")))
	}

	if prevDraft != nil && len(prevDraft.Content.Next) > 0 {
		sb.WriteString("\n上周计划（衔接本周完成情况）：\n")
		for _, item := range prevDraft.Content.Next {
			sb.WriteString("- " + item + "\n")
		}
	}

	if len(insights) > 0 {
		sb.WriteString("\n用户的长期关注点：\n")
		for _, insight := range insights {
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", insight.Kind, insight.Text))
		}
	}

	return sb.String()
}

// parseDraftContent 解析生成结果，容忍 markdown 代码块包裹
func parseDraftContent(text string) (model.DraftContent, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var content model.DraftContent
	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		return model.DraftContent{}, fmt.Errorf("生成结果不是合法的 JSON: %w", err)
	}
	if content.Done == nil {
		content.Done = []string{}
	}
	if content.Next == nil {
		content.Next = []string{}
	}
	return content, nil
}
