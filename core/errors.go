package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误分类（与降级策略一一对应）：
//   - MISSING_DATA：画像/向量/嵌入缺失 → 路由到次弱策略，绝不对外报错
//   - DIMENSION_MISMATCH：向量维度不符 → 与 MISSING_DATA 同等处理
//   - UNAVAILABLE：外部服务（向量检索/嵌入）失败 → 调用点捕获并降级
//   - NOT_FOUND：资源不存在（缓存未命中不属于错误，只是控制流分支）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "MISSING_DATA"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "strategy", "vector"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
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

// 错误代码常量
const (
	ErrorCodeNotFound          = "NOT_FOUND"          // 资源不存在
	ErrorCodeNotSupported      = "NOT_SUPPORTED"      // 操作不支持
	ErrorCodeUnavailable       = "UNAVAILABLE"        // 外部服务不可用
	ErrorCodeInvalidInput      = "INVALID_INPUT"      // 输入无效
	ErrorCodeMissingData       = "MISSING_DATA"       // 画像/向量/嵌入缺失
	ErrorCodeDimensionMismatch = "DIMENSION_MISMATCH" // 向量维度不符
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleStrategy = "strategy" // 策略模块
	ModuleVector   = "vector"   // 向量模块
	ModuleCache    = "cache"    // 缓存模块
	ModuleEngine   = "engine"   // 引擎模块
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsMissingData 检查错误是否为 MISSING_DATA 或 DIMENSION_MISMATCH。
// 两者降级路径相同：该切面视为缺失，换下一级策略。
func IsMissingData(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeMissingData ||
			domainErr.Code == ErrorCodeDimensionMismatch
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)
