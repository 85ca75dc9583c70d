package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/rate"
	"github.com/infigaming-com/go-fxconvert/util"
)

const (
	RatesPath         = "/api/rates"
	RatesCacheControl = "public, s-maxage=3600, stale-while-revalidate=7200"
)

// RatesRoutes serves GET /api/rates from provider. Any refresh query
// parameter bypasses the provider's cache.
func RatesRoutes(lg *zap.Logger, provider rate.Provider) func(gin.IRouter) {
	return func(r gin.IRouter) {
		r.GET(RatesPath, ratesHandler(lg, provider))
	}
}

func ratesHandler(lg *zap.Logger, provider rate.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			snapshot *rate.Snapshot
			err      error
		)
		if _, refresh := c.GetQuery("refresh"); refresh {
			snapshot, err = provider.Refresh(ctx)
		} else {
			snapshot, err = provider.Current(ctx)
		}
		if err != nil {
			correlationId, _ := util.CorrelationIdFromCtx(ctx)
			lg.Error("error in exchange rates api", zap.String("correlationId", correlationId), zap.Error(err))

			msg := err.Error()
			if msg == "" {
				msg = rate.ErrRatesUnavailable.Message
			}
			c.JSON(http.StatusInternalServerError, rate.Response{Error: msg})
			return
		}

		c.Header("Cache-Control", RatesCacheControl)
		c.JSON(http.StatusOK, rate.Response{Success: true, Data: snapshot})
	}
}
