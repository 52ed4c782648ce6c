package service

import (
	"errors"

	"shopnotify/internal/constants"
)

var (
	ErrStoreNotFound         = errors.New(constants.ErrStoreNotFound)
	ErrOrderNotFound         = errors.New(constants.ErrOrderNotFound)
	ErrWorkspaceNotFound     = errors.New(constants.ErrWorkspaceNotFound)
	ErrEventHistoryNotFound  = errors.New(constants.ErrEventHistoryNotFound)
	ErrInsufficientCredit    = errors.New(constants.ErrInsufficientCredit)
	ErrNoContentAvailable    = errors.New(constants.ErrNoContentAvailable)
	ErrReceiverPhoneMissing  = errors.New(constants.ErrReceiverPhoneMissing)
	ErrNoSubscription        = errors.New(constants.ErrNoSubscription)
	ErrInvalidAmount         = errors.New(constants.ErrInvalidAmount)
	ErrTemplateTitleUnparsed = errors.New(constants.ErrTemplateUnparsed)
)

// ValidationError 请求字段校验失败
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return constants.ErrInvalidParams + ": " + e.Field
}

// isFulfillmentFailure 判断错误是否为本次履约的业务结果，而非基础设施故障
func isFulfillmentFailure(err error) bool {
	return errors.Is(err, ErrInsufficientCredit) ||
		errors.Is(err, ErrNoContentAvailable) ||
		errors.Is(err, ErrReceiverPhoneMissing) ||
		errors.Is(err, ErrNoSubscription)
}
