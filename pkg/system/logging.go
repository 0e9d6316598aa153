// SPDX-License-Identifier: Apache-2.0

package system

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReqLoggerKey is the context key used to store the request-scoped
// logger in gin context.
const ReqLoggerKey = "reqLogger"

// GetReqLogger returns the request-scoped sugared logger from
// gin.Context if present, otherwise the provided fallback.
func GetReqLogger(c *gin.Context, fallback *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return fallback
	}
	if v, ok := c.Get(ReqLoggerKey); ok {
		if l, ok2 := v.(*zap.SugaredLogger); ok2 {
			return l
		}
	}
	return fallback
}

// TenantFields returns a variadic slice of key/value pairs suitable for
// passing to SugaredLogger.With or Infow/Errorw calls. If taskID is
// empty only the "tenant" key is included.
func TenantFields(tenantID, taskID string) []interface{} {
	if taskID == "" {
		return []interface{}{"tenant", tenantID}
	}
	return []interface{}{"tenant", tenantID, "task", taskID}
}
