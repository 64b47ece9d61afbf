package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/internal/model"
)

type OperationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

func (r *OperationRepository) Create(op *model.Operation) error {
	return r.db.Create(op).Error
}

func (r *OperationRepository) GetByID(id int64) (*model.Operation, error) {
	var op model.Operation
	err := r.db.Where("id = ?", id).First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// ClaimQueued 将 queued 任务原子地置为 processing。
// 用状态条件更新 + RowsAffected 判断是否抢到，避免两个 worker 同时处理。
func (r *OperationRepository) ClaimQueued(id int64, startedAt time.Time) (bool, error) {
	result := r.db.Model(&model.Operation{}).
		Where("id = ? AND status = ?", id, model.OperationStatusQueued).
		Updates(map[string]interface{}{
			"status":     model.OperationStatusProcessing,
			"started_at": startedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateProgress 更新处理进度，只允许前进不允许回退，且只对 processing 生效
func (r *OperationRepository) UpdateProgress(id int64, progress int) error {
	return r.db.Model(&model.Operation{}).
		Where("id = ? AND status = ? AND progress < ?", id, model.OperationStatusProcessing, progress).
		Update("progress", progress).Error
}

// Complete 写入成功终态。只有 processing 的任务能被完成，重复调用不生效。
func (r *OperationRepository) Complete(id int64, resultData model.JSONMap, completedAt time.Time) (bool, error) {
	result := r.db.Model(&model.Operation{}).
		Where("id = ? AND status = ?", id, model.OperationStatusProcessing).
		Updates(map[string]interface{}{
			"status":       model.OperationStatusCompleted,
			"progress":     100,
			"result_data":  resultData,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Fail 写入失败终态，附带失败分类和信息
func (r *OperationRepository) Fail(id int64, errorKind, errorMessage string, completedAt time.Time) (bool, error) {
	result := r.db.Model(&model.Operation{}).
		Where("id = ? AND status = ?", id, model.OperationStatusProcessing).
		Updates(map[string]interface{}{
			"status":        model.OperationStatusFailed,
			"error_kind":    errorKind,
			"error_message": errorMessage,
			"completed_at":  completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindActiveForWeek 查找同一用户同一周的未失败任务（去重判断用）。
// queued/processing/completed 都算占位，failed 允许重新生成。
func (r *OperationRepository) FindActiveForWeek(userID int64, jobType string, year, week int) (*model.Operation, error) {
	var op model.Operation
	err := r.db.Where(
		"user_id = ? AND job_type = ? AND year = ? AND week_number = ? AND status != ?",
		userID, jobType, year, week, model.OperationStatusFailed,
	).Order("created_at ASC").First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// ListByUser 按创建时间倒序分页
func (r *OperationRepository) ListByUser(userID int64, limit, offset int) ([]*model.Operation, error) {
	var ops []*model.Operation
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ops).Error
	return ops, err
}

// FailStale 将超时未完成的 processing 任务批量置为失败，worker 崩溃后兜底
func (r *OperationRepository) FailStale(cutoff time.Time, completedAt time.Time) (int64, error) {
	result := r.db.Model(&model.Operation{}).
		Where("status = ? AND started_at < ?", model.OperationStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        model.OperationStatusFailed,
			"error_kind":    model.ErrorKindTimeout,
			"error_message": "任务处理超时",
			"completed_at":  completedAt,
		})
	return result.RowsAffected, result.Error
}

// GetPending 获取最早入队的待处理任务（仅监控用）
func (r *OperationRepository) GetPending(limit int) ([]*model.Operation, error) {
	var ops []*model.Operation
	err := r.db.Where("status = ?", model.OperationStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&ops).Error
	return ops, err
}
