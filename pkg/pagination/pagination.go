package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/richxcame/tutor-payouts/pkg/common"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds page-based pagination with the derived limit/offset.
type Params struct {
	Page     int
	PageSize int
}

// Limit is the SQL LIMIT for the page.
func (p Params) Limit() int {
	return p.PageSize
}

// Offset is the SQL OFFSET for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParseParams reads page and pageSize from the query string.
// Out-of-range values fall back to defaults; pageSize is capped at MaxPageSize.
func ParseParams(c *gin.Context) Params {
	return Normalize(atoiOr(c.Query("page"), DefaultPage), atoiOr(c.Query("pageSize"), DefaultPageSize))
}

// Normalize clamps page and pageSize into the accepted range.
func Normalize(page, pageSize int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Params{Page: page, PageSize: pageSize}
}

// BuildMeta creates the response meta for a page of results.
func BuildMeta(p Params, total int64) *common.Meta {
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &common.Meta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Limit:      p.Limit(),
		Offset:     p.Offset(),
		Total:      total,
		TotalPages: totalPages,
	}
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
