package util

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrCourseNotFound     = errors.New("course not found")
	ErrProblemNotFound    = errors.New("problem not found")
	ErrSolutionLocked     = errors.New("solution still locked")
	ErrAlreadyVoted       = errors.New("already voted")
	ErrAlreadyLiked       = errors.New("already liked")
	ErrPostNotFound       = errors.New("post not found")
	ErrInvalidVoteValue   = errors.New("invalid vote value")
	ErrInvalidContentType = errors.New("invalid content type")
)

// IsDuplicateKeyError 判断是否为唯一索引冲突
// 重复插入 Attempt/Solve/Ballot 时靠它吞掉冲突并按成功处理，这是幂等的核心
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
