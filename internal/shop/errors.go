package shop

import "errors"

// 购买/建盒的错误分类。除这四类外的错误一律按存储层故障处理：
// 调用方记日志并返回通用失败，不自动重试。
var (
	// ErrInvalidRequest 参数缺失、价格不符等，客户端不改参数重试无意义。
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound 商品或用户不存在。
	ErrNotFound = errors.New("not found")
	// ErrOutOfStock 商品或全部子款式剩余量为 0。库存只减不增，对该商品是终态。
	ErrOutOfStock = errors.New("out of stock")
	// ErrConflict 并发修改导致扣减失败，整个购买从头重试即可。
	ErrConflict = errors.New("purchase conflict")
)
