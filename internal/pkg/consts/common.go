package consts

const (
	DefaultAvatarURL = "default_avatar.png"
)

const (
	MaxMessageLength = 2000 // 单条私信最大字符数
	MaxContactCount  = 200
)
