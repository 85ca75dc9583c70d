package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/infigaming-com/go-fxconvert/util"
)

// CORSMiddleware allows read-only cross-origin access to the API.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOriginFunc = util.MakeAllowedOriginValidator(allowedOrigins)
	config.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Cache-Control", CorrelationIdKey}
	config.ExposeHeaders = []string{CorrelationIdKey}
	config.MaxAge = 12 * time.Hour
	return cors.New(config)
}
