package async

import (
	"context"
	"fmt"
	"sync"
)

// Result 单个批处理项的执行结果，Index 对应输入切片中的位置
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// OK 该项是否执行成功
func (r Result[R]) OK() bool {
	return r.Err == nil
}

// PanicError 批处理项发生panic时返回的错误
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// SettleAll 并发处理所有输入项，单项失败不会中断其他项。
// 返回结果与输入一一对应，limit <= 0 时不限制并发数。
func SettleAll[T any, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = settleOne(ctx, i, item, fn)
		}(i, item)
	}
	wg.Wait()
	return results
}

func settleOne[T any, R any](ctx context.Context, i int, item T, fn func(ctx context.Context, item T) (R, error)) (res Result[R]) {
	res.Index = i
	defer func() {
		if r := recover(); r != nil {
			res.Err = &PanicError{Value: r}
		}
	}()
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	res.Value, res.Err = fn(ctx, item)
	return res
}

// Partition 将结果拆分为成功值和失败结果
func Partition[R any](results []Result[R]) ([]R, []Result[R]) {
	ok := make([]R, 0, len(results))
	var failed []Result[R]
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		ok = append(ok, r.Value)
	}
	return ok, failed
}
