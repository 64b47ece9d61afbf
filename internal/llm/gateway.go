package llm

import (
	"context"
	"errors"
)

// 生成服务错误
var (
	ErrNoModelConfigured = errors.New("未配置任何生成模型")
	ErrEmptyCompletion   = errors.New("生成结果为空")
)

// GenerateRequest 单次生成请求
type GenerateRequest struct {
	Model       string  // 为空时使用默认模型
	System      string  // 系统提示词
	Prompt      string  // 用户提示词
	Temperature float64 // 为 0 时使用服务端默认值
	MaxTokens   int
}

// Gateway 文本生成网关。调用方只管 prompt 进、文本出，
// 模型选择和供应商差异在实现内部处理。
type Gateway interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
