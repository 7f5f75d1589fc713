package session

// HookFunc 返回的错误只记录日志，不影响后续流程
type HookFunc func(s *Session) error

// Hooks 游戏逻辑在会话生命周期上的回调，都可以为nil
// OnRegister 在Connecting阶段调用，之后会话进入Active
// 其余三个在释放时按 OnTerminate -> (socket, cryptograph, buffer) -> OnRelease -> OnUnregister 的顺序调用
type Hooks struct {
	OnRegister   HookFunc
	OnTerminate  HookFunc
	OnRelease    HookFunc
	OnUnregister HookFunc
}
