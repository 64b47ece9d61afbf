package service

import (
	"context"
	"log"
	"sort"

	"github.com/qs3c/reflect_go_server/internal/integration"
	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/pkg/timeutil"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

// ConsolidationResult 一次归并的产出
type ConsolidationResult struct {
	Themes      []model.Theme // 全部数据源合并后的主题，按分类优先级 + 时间排序
	Unavailable []string      // 本次拉取失败的数据源 ID
	SourceCount int           // 参与归并的数据源数量
}

// ConsolidationService 把多个数据源的周活动归并为统一主题
type ConsolidationService struct {
	registry *integration.Registry
	weekRepo *repository.WeekRepository
}

func NewConsolidationService(registry *integration.Registry, weekRepo *repository.WeekRepository) *ConsolidationService {
	return &ConsolidationService{
		registry: registry,
		weekRepo: weekRepo,
	}
}

// ConsolidateWeek 拉取并归并某用户某周的全部活动。
// 单个数据源失败只标记不可用，不中断其他数据源；
// 每个数据源的结果按 (user, week, source) 覆盖写入。
func (s *ConsolidationService) ConsolidateWeek(ctx context.Context, user *model.User, year, week int, includeSources []string) (*ConsolidationResult, error) {
	weekStart, weekEnd := timeutil.WeekBounds(year, week)

	sources := s.selectSources(includeSources)
	result := &ConsolidationResult{SourceCount: len(sources)}

	for _, source := range sources {
		records, err := source.FetchWeek(ctx, user, weekStart, weekEnd)
		if err != nil {
			log.Printf("Consolidation: source %s unavailable for user %d week %d-W%d: %v",
				source.ID(), user.ID, year, week, err)
			result.Unavailable = append(result.Unavailable, source.ID())

			if upsertErr := s.weekRepo.Upsert(&model.ConsolidatedWeek{
				UserID: user.ID, WeekNumber: week, Year: year,
				SourceID: source.ID(), Unavailable: true,
				Themes: model.ThemeList{},
			}); upsertErr != nil {
				return nil, upsertErr
			}
			continue
		}

		themes := normalizeRecords(records)
		if err := s.weekRepo.Upsert(&model.ConsolidatedWeek{
			UserID: user.ID, WeekNumber: week, Year: year,
			SourceID: source.ID(),
			RawData:  model.JSONMap{"record_count": len(records)},
			Themes:   model.ThemeList(themes),
		}); err != nil {
			return nil, err
		}

		result.Themes = append(result.Themes, themes...)
	}

	sortThemes(result.Themes)
	return result, nil
}

// selectSources 按偏好过滤数据源，空列表表示全部启用
func (s *ConsolidationService) selectSources(includeSources []string) []integration.Source {
	if len(includeSources) == 0 {
		return s.registry.All()
	}

	var sources []integration.Source
	for _, id := range includeSources {
		if source, ok := s.registry.Get(id); ok {
			sources = append(sources, source)
		}
	}
	return sources
}

// normalizeRecords 把原始活动记录转成主题，未知分类归入 other
func normalizeRecords(records []integration.ActivityRecord) []model.Theme {
	themes := make([]model.Theme, 0, len(records))
	for _, record := range records {
		category := record.Category
		if _, known := model.CategoryPriority[category]; !known {
			category = model.ThemeCategoryOther
		}
		themes = append(themes, model.Theme{
			Category:        category,
			EvidenceText:    record.Text,
			SourceReference: record.Reference,
			Timestamp:       record.Timestamp,
		})
	}
	return themes
}

// sortThemes 按分类优先级排序，同分类内按时间先后
func sortThemes(themes []model.Theme) {
	sort.SliceStable(themes, func(i, j int) bool {
		pi := model.CategoryPriority[themes[i].Category]
		pj := model.CategoryPriority[themes[j].Category]
		if pi != pj {
			return pi < pj
		}
		return themes[i].Timestamp.Before(themes[j].Timestamp)
	})
}
