package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
	"shopnotify/pkg/logger"
)

var (
	templateCodePattern    = regexp.MustCompile(`(?i)(?:코드|code)\s*[:：]\s*([A-Za-z0-9_\-]+)`)
	templateBracketPattern = regexp.MustCompile(`\[([A-Za-z0-9_\-]+)\]`)
)

// TemplateReview 模板审核标题解析结果
type TemplateReview struct {
	TemplateCode string             `json:"templateCode"`
	Status       model.ReviewStatus `json:"status"`
}

// ParseTemplateReviewTitle 从审核通知标题中解析模板代码和审核结果
// 无法识别时返回 ErrTemplateTitleUnparsed
func ParseTemplateReviewTitle(title string) (TemplateReview, error) {
	var review TemplateReview

	if m := templateCodePattern.FindStringSubmatch(title); m != nil {
		review.TemplateCode = m[1]
	} else if m := templateBracketPattern.FindStringSubmatch(title); m != nil {
		review.TemplateCode = m[1]
	} else {
		return review, fmt.Errorf("%w: 缺少模板代码: %q", ErrTemplateTitleUnparsed, title)
	}

	switch {
	case strings.Contains(title, "반려"):
		review.Status = model.ReviewStatusRejected
	case strings.Contains(title, "승인"):
		review.Status = model.ReviewStatusApproved
	case strings.Contains(strings.ReplaceAll(title, "알림톡", ""), "알림"):
		review.Status = model.ReviewStatusRequested
	default:
		return review, fmt.Errorf("%w: 缺少审核关键字: %q", ErrTemplateTitleUnparsed, title)
	}
	return review, nil
}

// TemplateReviewService 模板审核回调服务
type TemplateReviewService struct {
	messages repository.MessageRepository
	logger   *logger.Logger
}

// NewTemplateReviewService 创建模板审核回调服务
func NewTemplateReviewService(messages repository.MessageRepository, logger *logger.Logger) *TemplateReviewService {
	return &TemplateReviewService{messages: messages, logger: logger}
}

// Apply 解析标题并更新对应模板的审核状态
func (s *TemplateReviewService) Apply(ctx context.Context, title string) (TemplateReview, error) {
	review, err := ParseTemplateReviewTitle(title)
	if err != nil {
		s.logger.Warn("模板审核标题无法解析", "title", title, "error", err)
		return review, err
	}

	n, err := s.messages.UpdateReviewStatus(ctx, review.TemplateCode, review.Status)
	if err != nil {
		return review, fmt.Errorf("更新模板审核状态失败: %w", err)
	}
	if n == 0 {
		s.logger.Warn("未找到对应模板", "template_code", review.TemplateCode)
	}
	s.logger.Info("模板审核状态已更新", "template_code", review.TemplateCode, "status", review.Status, "rows", n)
	return review, nil
}
