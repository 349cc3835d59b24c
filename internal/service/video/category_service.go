package service

import (
	"context"

	"github.com/weiwangfds/reelfolio/internal/database"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
)

// ListCategories 获取分类列表
func (s *videoService) ListCategories(ctx context.Context) ([]database.Category, error) {
	categories := make([]database.Category, 0)
	err := s.db.WithContext(ctx).Order("display_order ASC").Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return categories, nil
}
