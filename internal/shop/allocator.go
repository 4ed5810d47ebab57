package shop

import (
	"math/rand"

	"blind_box/internal/model"
)

// PickSubItem 按剩余量加权随机抽取一个子款式：
// 概率 = 该款剩余量 / 所有有货款式剩余量之和。
// 实现为「在 [0, total) 内均匀取一点，再沿累计和找到落点」，
// 等价于把每个款式按剩余量展开成虚拟序列后均匀抽一格。
// intn 由调用方注入，生产路径用 rand.Int63n，测试可换成固定序列。
func PickSubItem(items []model.SubItem, intn func(n int64) int64) (*model.SubItem, error) {
	var total int64
	for i := range items {
		if items[i].RemainingQuantity > 0 {
			total += items[i].RemainingQuantity
		}
	}
	// 空候选集属于调用方违约：coordinator 必须先确认库存 > 0。
	if total <= 0 {
		return nil, ErrOutOfStock
	}

	point := intn(total)
	var cum int64
	for i := range items {
		if items[i].RemainingQuantity <= 0 {
			continue
		}
		cum += items[i].RemainingQuantity
		if point < cum {
			return &items[i], nil
		}
	}
	// intn 返回值在 [0, total) 内时走不到这里
	return nil, ErrOutOfStock
}

// randIntn 生产路径的抽签源。
func randIntn(n int64) int64 { return rand.Int63n(n) }
