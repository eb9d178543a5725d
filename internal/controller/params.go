package controller

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// pathID reads a positive numeric path parameter and answers 400 when it is
// missing or malformed.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(ctx *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(ctx.Query(name))
	if err != nil {
		return def
	}
	return v
}

func isStaff(claims *util.Claims) bool {
	return claims.Role == model.Admin || claims.Role == model.Staff
}
