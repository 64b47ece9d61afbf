package service

import (
	"errors"
	"time"

	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/model/dto"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

var ErrInvalidTimezone = errors.New("无效的时区")

type PreferenceService struct {
	prefRepo *repository.PreferenceRepository
}

func NewPreferenceService(prefRepo *repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{prefRepo: prefRepo}
}

// Get 读取偏好，首次访问时落默认值
func (s *PreferenceService) Get(userID int64) (*dto.PreferenceResponse, error) {
	pref, err := s.prefRepo.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	return buildPreferenceResponse(pref), nil
}

// Update 更新偏好，未提供的字段保持原值
func (s *PreferenceService) Update(userID int64, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error) {
	pref, err := s.prefRepo.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, ErrInvalidTimezone
		}
		pref.Timezone = *req.Timezone
	}
	if req.AutoGenerate != nil {
		pref.AutoGenerate = *req.AutoGenerate
	}
	if req.PreferredDay != nil {
		pref.PreferredDay = *req.PreferredDay
	}
	if req.PreferredHour != nil {
		pref.PreferredHour = *req.PreferredHour
	}
	if req.IncludeSources != nil {
		pref.IncludeSources = model.StringArray(*req.IncludeSources)
	}
	if req.NotifyOnGeneration != nil {
		pref.NotifyOnGeneration = *req.NotifyOnGeneration
	}

	if err := s.prefRepo.Update(pref); err != nil {
		return nil, err
	}
	return buildPreferenceResponse(pref), nil
}

func buildPreferenceResponse(pref *model.UserPreference) *dto.PreferenceResponse {
	return &dto.PreferenceResponse{
		AutoGenerate:       pref.AutoGenerate,
		PreferredDay:       pref.PreferredDay,
		PreferredHour:      pref.PreferredHour,
		Timezone:           pref.Timezone,
		IncludeSources:     pref.IncludeSources,
		NotifyOnGeneration: pref.NotifyOnGeneration,
	}
}
