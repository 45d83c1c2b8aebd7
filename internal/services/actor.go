package services

// Actor 当前操作者 - 由handler从登录上下文填充，用于审计
type Actor struct {
	UserID   uint
	Username string
	IP       string
}
