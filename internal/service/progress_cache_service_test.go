package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendIdentityNewEntryGoesFirst(t *testing.T) {
	list := []KnownIdentity{
		{UserID: 1, Label: "Alice"},
		{UserID: 2, Label: "Bob"},
	}

	updated := appendIdentity(list, KnownIdentity{UserID: 3, Label: "Carol"}, 8)

	assert.Len(t, updated, 3)
	assert.Equal(t, uint(3), updated[0].UserID)
	assert.Equal(t, uint(1), updated[1].UserID)
}

func TestAppendIdentityDeduplicates(t *testing.T) {
	list := []KnownIdentity{
		{UserID: 1, Label: "Alice"},
		{UserID: 2, Label: "Bob"},
		{UserID: 3, Label: "Carol"},
	}

	// 已在列表中的身份重新登录：去重并挪到最前
	updated := appendIdentity(list, KnownIdentity{UserID: 2, Label: "Bob"}, 8)

	assert.Len(t, updated, 3)
	assert.Equal(t, uint(2), updated[0].UserID)
	assert.Equal(t, uint(1), updated[1].UserID)
	assert.Equal(t, uint(3), updated[2].UserID)
}

func TestAppendIdentityBounded(t *testing.T) {
	var list []KnownIdentity
	for i := 1; i <= 10; i++ {
		list = appendIdentity(list, KnownIdentity{UserID: uint(i)}, 3)
	}

	// 有界列表：永远不超过上限，最旧的先被挤出
	assert.Len(t, list, 3)
	assert.Equal(t, uint(10), list[0].UserID)
	assert.Equal(t, uint(9), list[1].UserID)
	assert.Equal(t, uint(8), list[2].UserID)
}

func TestAppendIdentityZeroLimitFallsBack(t *testing.T) {
	var list []KnownIdentity
	for i := 1; i <= 12; i++ {
		list = appendIdentity(list, KnownIdentity{UserID: uint(i)}, 0)
	}

	// 非法上限退化为默认值 8
	assert.Len(t, list, 8)
	assert.Equal(t, uint(12), list[0].UserID)
}

func TestAppendIdentityEmptyList(t *testing.T) {
	updated := appendIdentity(nil, KnownIdentity{UserID: 5, Label: "Eve"}, 8)

	assert.Len(t, updated, 1)
	assert.Equal(t, uint(5), updated[0].UserID)
}
