package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 上游目录服务的事件载荷。
// 事件内嵌了标签的完整信息，而不是只有ID，
// 这让reconciler可以按需补建本地的标签镜像。

// TagInfo 是事件中内嵌的标签描述
type TagInfo struct {
	TagID   string `json:"tagId"`
	TagName string `json:"tagName"`
	TagType string `json:"tagType"`
}

// AdInfo 是事件中内嵌的广告描述
type AdInfo struct {
	AdID string `json:"adId"`
}

// VideoCreatePayload 是video-create事件的载荷
type VideoCreatePayload struct {
	VideoID   string    `json:"videoId"`
	VideoName string    `json:"videoName"`
	SellerID  string    `json:"sellerId"`
	VideoTags []TagInfo `json:"videoTags"`
	VideoAds  []AdInfo  `json:"videoAds"`
}

// VideoUpdatePayload 是video-update事件的载荷。
// 除VideoID外所有字段都是可选的：缺失(JSON null或不出现)表示
// "不要求变更"，绝不能解释为"清空"。
// 反序列化后nil切片代表缺失，空切片代表显式的空列表。
type VideoUpdatePayload struct {
	VideoID   string    `json:"videoId"`
	VideoName *string   `json:"videoName"`
	VideoTags []TagInfo `json:"videoTags"`
	VideoAds  []AdInfo  `json:"videoAds"`
}

// parseCreatePayload 解析并校验video-create载荷
func parseCreatePayload(data []byte) (*VideoCreatePayload, error) {
	var p VideoCreatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("无法解析video-create载荷: %w", err)
	}
	if p.VideoID == "" {
		return nil, fmt.Errorf("video-create载荷缺少videoId")
	}
	return &p, nil
}

// parseUpdatePayload 解析并校验video-update载荷
func parseUpdatePayload(data []byte) (*VideoUpdatePayload, error) {
	var p VideoUpdatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("无法解析video-update载荷: %w", err)
	}
	if p.VideoID == "" {
		return nil, fmt.Errorf("video-update载荷缺少videoId")
	}
	return &p, nil
}

// parseDeletePayload 解析video-delete载荷。
// 载荷就是裸的videoId字符串，同时兼容JSON字符串形式。
func parseDeletePayload(data []byte) (string, error) {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", fmt.Errorf("无法解析video-delete载荷: %w", err)
		}
		raw = s
	}
	if raw == "" {
		return "", fmt.Errorf("video-delete载荷为空")
	}
	return raw, nil
}
