package redis

import (
	"context"
	"errors"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// CacheStock 把 DB 里的剩余量写进缓存，购买成功后刷新一次。
// 缓存只服务读接口，扣减永远走 DB 事务。
func CacheStock(ctx context.Context, rdb *rd.Client, productID uint, remaining int64, ttl time.Duration) error {
	return rdb.Set(ctx, StockCacheKey(productID), remaining, ttl).Err()
}

// GetCachedStock 读缓存库存。found=false 表示缓存未命中，调用方回源 DB。
func GetCachedStock(ctx context.Context, rdb *rd.Client, productID uint) (int64, bool, error) {
	val, err := rdb.Get(ctx, StockCacheKey(productID)).Int64()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return val, true, nil
}

// InvalidateStock 删除缓存项，商品被删除后调用。
func InvalidateStock(ctx context.Context, rdb *rd.Client, productID uint) error {
	return rdb.Del(ctx, StockCacheKey(productID)).Err()
}
