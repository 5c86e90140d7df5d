package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid   = errors.New("参数错误")
	ErrMessageTooLong = errors.New("消息内容过长")
	ErrNotConnected   = errors.New("互相关注后才能私信")
	ErrUserNotFound   = errors.New("用户不存在")
	UnauthorizedError = errors.New("权限不足")
	UnExpectedError   = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:   BadRequest,
	ErrMessageTooLong: BadRequest,
	ErrNotConnected:   Forbidden,
	ErrUserNotFound:   NotFound,
	UnauthorizedError: Unauthorized,
	UnExpectedError:   InternalServerError,
}
