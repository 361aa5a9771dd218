package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/fleetverify-backend/internal/app/service"
	"github.com/ikkim/fleetverify-backend/internal/middleware"
)

// TimezoneHeader carries the browser's IANA timezone for KYC session tracking.
const TimezoneHeader = "X-Timezone"

func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

func requestContext(c *gin.Context) service.RequestContext {
	return service.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Timezone:  c.GetHeader(TimezoneHeader),
	}
}

// adminActor falls back to the system actor when no admin is on the context.
func adminActor(c *gin.Context) service.Actor {
	id, ok := middleware.GetAdminID(c)
	if !ok {
		return service.SystemActor()
	}
	name, _ := middleware.GetAdminName(c)
	return service.AdminActor(id, name)
}
