package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model/dto"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

type UserService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewUserService(userRepo *repository.UserRepository, cfg *config.Config) *UserService {
	return &UserService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(userID int64) (*dto.UserProfile, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	dailyLimit := s.cfg.Scheduler.ManualDailyQuota
	if dailyLimit <= 0 {
		dailyLimit = 3
	}

	profile := &dto.UserProfile{
		UserID:           user.ID,
		Username:         user.Username,
		AvatarURL:        user.AvatarURL,
		GithubLinked:     user.GithubID != nil,
		ManualQuotaToday: user.ManualQuotaToday,
		ManualDailyQuota: dailyLimit,
	}
	if user.Email != nil {
		profile.Email = *user.Email
	}
	return profile, nil
}

// UpdateProfile 更新用户资料
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserProfile, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		exists, err := s.userRepo.ExistsByUsername(*req.Username)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrUsernameExists
		}
		user.Username = *req.Username
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return s.GetProfile(userID)
}
