package statistics

import "errors"

// 计数操作的预期结果集。
// ErrAlreadyActed / ErrNotYetActed 是"安全忽略的重复动作"，
// 对调用方来说是成功但无状态变化，不是系统故障。
var (
	// ErrAlreadyActed 表示该用户已经对该目标执行过此动作
	ErrAlreadyActed = errors.New("用户已经执行过该动作")

	// ErrNotYetActed 表示取消类动作找不到可取消的记录
	ErrNotYetActed = errors.New("用户尚未执行过该动作")

	// ErrTargetNotFound 表示目标视频或广告不存在
	ErrTargetNotFound = errors.New("找不到目标对象")

	// ErrInvalidAction 表示非法的动作标识
	ErrInvalidAction = errors.New("action必须是like或dislike")
)
