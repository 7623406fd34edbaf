package errs

// 业务错误码。1xxx 客户端侧，5xxx 服务端侧。
var (
	ArgsError           = NewCodeError(1001, "ArgsError")           // 参数缺失/非法
	PermissionError     = NewCodeError(1002, "PermissionError")     // 无权操作（撤回他人消息等）
	RecordNotFoundError = NewCodeError(1004, "RecordNotFoundError") // 目标记录不存在
	StorageError        = NewCodeError(5001, "StorageError")        // 落库失败
	ServerInternalError = NewCodeError(5000, "ServerInternalError")
)
