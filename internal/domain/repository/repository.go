// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// txContextKey 事务句柄在 context 中的键
type txContextKey struct{}

// TxKey 供持久化实现存取事务句柄
var TxKey = txContextKey{}

// Transactor 在同一事务中执行 fn，fn 内的仓储调用通过 ctx 共享事务
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
