package util

import (
	"strconv"
	"time"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// TimeToMillis 转为毫秒时间戳，解锁倒计时统一用毫秒对外
func TimeToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// MillisToTime 毫秒时间戳转 time.Time
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
