package service

import (
	"context"
	"errors"
	"fmt"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
)

// ContentAllocator 内容分配器，须在调用方事务内使用
type ContentAllocator struct {
	contents repository.ContentRepository
}

// NewContentAllocator 创建内容分配器
func NewContentAllocator(contents repository.ContentRepository) *ContentAllocator {
	return &ContentAllocator{contents: contents}
}

// Allocate 优先分配未使用的内容，一次性内容组同时标记为已使用
func (a *ContentAllocator) Allocate(ctx context.Context, group *model.ContentGroup) (*model.Content, error) {
	content, err := a.contents.ClaimUnused(ctx, group.ID)
	if errors.Is(err, repository.ErrNotFound) && !group.OneTime {
		content, err = a.contents.ClaimAny(ctx, group.ID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoContentAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("分配内容失败: %w", err)
	}

	if group.OneTime {
		if err := a.contents.MarkUsed(ctx, content.ID); err != nil {
			return nil, fmt.Errorf("标记内容已使用失败: %w", err)
		}
		content.Used = true
	}
	return content, nil
}

// Release 将内容重新标记为未使用
func (a *ContentAllocator) Release(ctx context.Context, ids []int64) error {
	return a.contents.Release(ctx, ids)
}
