package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tripvid/video-stats-backend/internal/rank"
	"github.com/tripvid/video-stats-backend/internal/statistics"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/statistics")
	{
		// 计数更新相关的路由
		api.PUT("/videos/:videoId/views", statistics.IncreaseViewCount)
		api.PUT("/videos/:videoId/likes", statistics.ChangeLikeCount)
		api.PUT("/ads/:adId/clicks", statistics.IncreaseAdClickCount)

		// 排行榜相关的路由
		api.GET("/tags/region/rank", rank.GetTagRankByRegion)
		api.GET("/tags/theme/rank", rank.GetTagRankByTheme)
	}
}
