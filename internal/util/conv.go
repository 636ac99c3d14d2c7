package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// MustParseInt 解析失败时返回 fallback
func MustParseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

// ParsePage 读取 page / limit 查询参数并裁剪到合法范围
func ParsePage(c *gin.Context) (page, limit int) {
	page = MustParseInt(c.DefaultQuery("page", "1"), 1)
	limit = MustParseInt(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)), DefaultPageLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
