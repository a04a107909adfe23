package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/validation"
)

// BindJSON binds and validates the JSON body. On failure it writes a 400 and returns false.
func BindJSON(c *gin.Context, req interface{}) bool {
	validation.Register()
	if err := c.ShouldBindJSON(req); err != nil {
		common.AppErrorResponse(c, validation.ToAppError(err))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters. On failure it writes a 400 and returns false.
func BindQuery(c *gin.Context, req interface{}) bool {
	validation.Register()
	if err := c.ShouldBindQuery(req); err != nil {
		common.AppErrorResponse(c, validation.ToAppError(err))
		return false
	}
	return true
}
