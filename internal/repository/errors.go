package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// translate 把 gorm 的 not found 映射成领域错误，其余错误带上调用位置
func translate(err error, notFound error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return errors.Wrap(err, op)
}
