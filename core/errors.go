package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 错误分类：
//   - CHANNEL_UNAVAILABLE：通道无法为当前用户/物品/图片产出结果（冷启动、未知 ID、无查询图片），
//     在融合阶段就地降级为空序列，不向上传播
//   - EMPTY_CANDIDATE_POOL：融合+过滤后没有候选，交给兜底补齐处理，不是失败
//   - MALFORMED_SIMILARITY_LOOKUP：多样性惩罚查询的物品对不在相似度矩阵中，按 0 处理
//   - INVALID_CONFIG：top_k <= 0、负权重等，唯一会中断请求的错误
type DomainError struct {
	Code    string // 错误代码（如 "CHANNEL_UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "recall", "rank"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// IsDomainError 检查错误链中是否包含 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建带底层错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound           = "NOT_FOUND"                   // 资源不存在
	ErrorCodeNotSupported       = "NOT_SUPPORTED"               // 操作不支持
	ErrorCodeChannelUnavailable = "CHANNEL_UNAVAILABLE"         // 通道无结果
	ErrorCodeEmptyCandidates    = "EMPTY_CANDIDATE_POOL"        // 候选集为空
	ErrorCodeMalformedLookup    = "MALFORMED_SIMILARITY_LOOKUP" // 相似度缺失
	ErrorCodeInvalidConfig      = "INVALID_CONFIG"              // 配置错误
)

// 模块名称常量
const (
	ModuleStore    = "store"
	ModuleRecall   = "recall"
	ModuleRank     = "rank"
	ModuleFilter   = "filter"
	ModuleRerank   = "rerank"
	ModuleFallback = "fallback"
	ModuleConfig   = "config"
)

// ChannelUnavailable 构造一个通道不可用错误。
func ChannelUnavailable(channel, reason string) *DomainError {
	return NewDomainError(ModuleRecall, ErrorCodeChannelUnavailable, channel+": "+reason)
}

// ConfigError 构造一个配置错误。
func ConfigError(format string, args ...any) *DomainError {
	return NewDomainError(ModuleConfig, ErrorCodeInvalidConfig, fmt.Sprintf(format, args...))
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsChannelUnavailable 检查错误是否为 CHANNEL_UNAVAILABLE
func IsChannelUnavailable(err error) bool { return hasCode(err, ErrorCodeChannelUnavailable) }

// IsConfigurationError 检查错误是否为 INVALID_CONFIG
func IsConfigurationError(err error) bool { return hasCode(err, ErrorCodeInvalidConfig) }
