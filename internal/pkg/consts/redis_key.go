package consts

const (
	IMRealtimeKey   = "im:rt:"         // 实时频道前缀，后接频道 ID
	IMConnectionKey = "im:connection:" // 私信权限缓存，后接双人频道 ID
	IMProfileKey    = "im:profile:"    // 会话对方资料缓存
	IMUnreadDirty   = "im:unread:dirty"
)
