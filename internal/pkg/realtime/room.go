package realtime

import (
	"ThinkSync/internal/pkg/consts"
	"errors"
	"strconv"
	"strings"
)

// ChannelID 实时频道标识，双人频道或个人频道
type ChannelID string

const userChannelPrefix = "user:"

var (
	ErrMissingUserID  = errors.New("realtime: 缺少用户 ID")
	ErrInvalidChannel = errors.New("realtime: 非法的频道 ID")
)

// PairChannel 双人会话频道，两个 ID 按字符串字典序排序后以 "_" 连接
func PairChannel(a, b uint64) (ChannelID, error) {
	if a == 0 || b == 0 {
		return "", ErrMissingUserID
	}
	x, y := strconv.FormatUint(a, 10), strconv.FormatUint(b, 10)
	if y < x {
		x, y = y, x
	}
	return ChannelID(x + "_" + y), nil
}

// UserChannel 个人通知频道
func UserChannel(id uint64) (ChannelID, error) {
	if id == 0 {
		return "", ErrMissingUserID
	}
	return ChannelID(userChannelPrefix + strconv.FormatUint(id, 10)), nil
}

// ParsePairChannel 从双人频道中还原两个用户 ID
func ParsePairChannel(ch ChannelID) (uint64, uint64, error) {
	left, right, ok := strings.Cut(string(ch), "_")
	if !ok {
		return 0, 0, ErrInvalidChannel
	}
	a, err := strconv.ParseUint(left, 10, 64)
	if err != nil || a == 0 {
		return 0, 0, ErrInvalidChannel
	}
	b, err := strconv.ParseUint(right, 10, 64)
	if err != nil || b == 0 {
		return 0, 0, ErrInvalidChannel
	}
	// 只接受规范形式，避免同一会话出现两个频道
	if canonical, _ := PairChannel(a, b); canonical != ch {
		return 0, 0, ErrInvalidChannel
	}
	return a, b, nil
}

// IsUserChannel 判断是否为个人频道
func (c ChannelID) IsUserChannel() bool {
	return strings.HasPrefix(string(c), userChannelPrefix)
}

// Topic 频道在 Redis 上的发布主题
func (c ChannelID) Topic() string {
	return consts.IMRealtimeKey + string(c)
}

// ChannelFromTopic Topic 的逆操作
func ChannelFromTopic(topic string) (ChannelID, bool) {
	id, ok := strings.CutPrefix(topic, consts.IMRealtimeKey)
	if !ok || id == "" {
		return "", false
	}
	return ChannelID(id), true
}
