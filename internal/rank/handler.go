package rank

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tripvid/video-stats-backend/internal/video"
)

// GetTagRankByRegion 处理 GET /tags/region/rank
func GetTagRankByRegion(c *gin.Context) {
	respondRank(c, video.TagTypeRegion)
}

// GetTagRankByTheme 处理 GET /tags/theme/rank
func GetTagRankByTheme(c *gin.Context) {
	respondRank(c, video.TagTypeTheme)
}

func respondRank(c *gin.Context, tagType string) {
	entries, err := GetTagRank(tagType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取排行榜数据失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rank": entries})
}
