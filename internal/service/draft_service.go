package service

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/model/dto"
	"github.com/qs3c/reflect_go_server/internal/pkg/oss"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

var (
	ErrDraftNotFound    = errors.New("草稿不存在")
	ErrArchiveDisabled  = errors.New("归档服务未配置")
)

type DraftService struct {
	draftRepo *repository.DraftRepository
	ossClient *oss.Client // 可选，未配置时导出接口不可用
}

func NewDraftService(draftRepo *repository.DraftRepository, ossClient *oss.Client) *DraftService {
	return &DraftService{
		draftRepo: draftRepo,
		ossClient: ossClient,
	}
}

// List 草稿列表
func (s *DraftService) List(userID int64, limit, offset int) ([]*dto.DraftListItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	drafts, err := s.draftRepo.ListByUser(userID, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.DraftListItem, 0, len(drafts))
	for _, draft := range drafts {
		items = append(items, &dto.DraftListItem{
			ID:                draft.ID,
			WeekNumber:        draft.WeekNumber,
			Year:              draft.Year,
			ReducedConfidence: draft.ReducedConfidence,
			CreatedAt:         draft.CreatedAt,
			UpdatedAt:         draft.UpdatedAt,
		})
	}
	return items, nil
}

// GetByWeek 读取某周草稿
func (s *DraftService) GetByWeek(userID int64, year, week int) (*dto.DraftDetail, error) {
	draft, err := s.draftRepo.GetByWeek(userID, year, week)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return buildDraftDetail(draft), nil
}

// Export 把草稿归档到对象存储并返回地址
func (s *DraftService) Export(userID int64, year, week int) (*dto.ExportDraftResponse, error) {
	if s.ossClient == nil {
		return nil, ErrArchiveDisabled
	}

	draft, err := s.draftRepo.GetByWeek(userID, year, week)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}

	data, err := json.MarshalIndent(map[string]interface{}{
		"year":               draft.Year,
		"week_number":        draft.WeekNumber,
		"content":            draft.Content,
		"reduced_confidence": draft.ReducedConfidence,
		"generated_at":       draft.UpdatedAt,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	url, err := s.ossClient.UploadDraftArchive(userID, year, week, data)
	if err != nil {
		return nil, err
	}

	if err := s.draftRepo.UpdateArchiveURL(draft.ID, url); err != nil {
		return nil, err
	}

	return &dto.ExportDraftResponse{ArchiveURL: url}, nil
}

func buildDraftDetail(draft *model.DraftReflection) *dto.DraftDetail {
	return &dto.DraftDetail{
		ID:                draft.ID,
		WeekNumber:        draft.WeekNumber,
		Year:              draft.Year,
		Done:              draft.Content.Done,
		Next:              draft.Content.Next,
		Notes:             draft.Content.Notes,
		ReducedConfidence: draft.ReducedConfidence,
		SourceOperationID: draft.SourceOperationID,
		ArchiveURL:        draft.ArchiveURL,
		CreatedAt:         draft.CreatedAt,
		UpdatedAt:         draft.UpdatedAt,
	}
}
