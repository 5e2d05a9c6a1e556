package statistics

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ViewRequestBody 定义了观看上报的请求体
type ViewRequestBody struct {
	UserID string `json:"userId" binding:"required"`
}

// LikeRequestBody 定义了点赞/取消点赞的请求体
type LikeRequestBody struct {
	UserID string `json:"userId" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// AdClickRequestBody 定义了广告点击上报的请求体
type AdClickRequestBody struct {
	UserID string `json:"userId" binding:"required"`
}

// IncreaseViewCount 处理 PUT /videos/:videoId/views
func IncreaseViewCount(c *gin.Context) {
	videoID := c.Param("videoId")

	var body ViewRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	info, err := RecordView(videoID, body.UserID)
	if err != nil {
		respondOutcome(c, err)
		return
	}

	PropagateSnapshot(info)

	c.JSON(http.StatusOK, gin.H{
		"videoId":   videoID,
		"viewCount": info.ViewCount,
		"likeCount": info.LikeCount,
		"updatedAt": time.Now().Format(time.RFC3339),
	})
}

// ChangeLikeCount 处理 PUT /videos/:videoId/likes
func ChangeLikeCount(c *gin.Context) {
	videoID := c.Param("videoId")

	var body LikeRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	info, err := RecordLike(videoID, body.UserID, body.Action)
	if err != nil {
		respondOutcome(c, err)
		return
	}

	PropagateSnapshot(info)

	c.JSON(http.StatusOK, gin.H{
		"videoId":   videoID,
		"likeCount": info.LikeCount,
		"updatedAt": time.Now().Format(time.RFC3339),
	})
}

// IncreaseAdClickCount 处理 PUT /ads/:adId/clicks
func IncreaseAdClickCount(c *gin.Context) {
	adID := c.Param("adId")

	var body AdClickRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	info, err := RecordAdClick(adID, body.UserID)
	if err != nil {
		respondOutcome(c, err)
		return
	}

	PropagateSnapshot(info)

	c.JSON(http.StatusOK, gin.H{
		"adId":       adID,
		"clickCount": info.ClickCount,
		"updatedAt":  time.Now().Format(time.RFC3339),
	})
}

// respondOutcome 把服务层的结果映射为HTTP状态码。
// 重复动作(AlreadyActed/NotYetActed)对调用方是成功的空操作，返回200；
// 目标不存在返回404；其余一律按内部错误处理。
func respondOutcome(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAlreadyActed), errors.Is(err, ErrNotYetActed):
		c.JSON(http.StatusOK, gin.H{"message": err.Error()})
	case errors.Is(err, ErrTargetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "处理统计更新失败"})
	}
}
