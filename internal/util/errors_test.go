package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyError(t *testing.T) {
	assert.False(t, IsDuplicateKeyError(nil))
	assert.False(t, IsDuplicateKeyError(errors.New("connection refused")))
	assert.False(t, IsDuplicateKeyError(gorm.ErrRecordNotFound))

	assert.True(t, IsDuplicateKeyError(gorm.ErrDuplicatedKey))

	// 翻译层没吃掉的裸驱动错误也要认出来
	assert.True(t, IsDuplicateKeyError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicateKeyError(&mysql.MySQLError{Number: 1045}))

	// 包装后的错误同样能识别
	wrapped := fmt.Errorf("create attempt: %w", gorm.ErrDuplicatedKey)
	assert.True(t, IsDuplicateKeyError(wrapped))

	wrappedDriver := fmt.Errorf("create solve: %w", &mysql.MySQLError{Number: 1062})
	assert.True(t, IsDuplicateKeyError(wrappedDriver))
}
