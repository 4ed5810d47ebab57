package redis

import "fmt"

// StockCacheKey 统一约定商品剩余库存缓存键名。
func StockCacheKey(productID uint) string {
	return fmt.Sprintf("blind_box:stock:%d", productID)
}

// RewardFeedKey 社区“最新抽中”滚动条的列表键。
func RewardFeedKey() string {
	return "blind_box:reward_feed"
}
