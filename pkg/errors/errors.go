// Package errors 跨模块共享的存储层错误
package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("record was modified by another request, reload and try again")
