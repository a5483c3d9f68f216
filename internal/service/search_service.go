package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/repository"
)

// SearchLimit 每个字段最多返回的条数
const SearchLimit = 5

// SearchService 用户名 / 自定义 ID 前缀搜索
type SearchService struct {
	users repository.UserRepository
}

func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{users: repository.NewUserRepository(db)}
}

// SearchUsers 用户名结果在前，按 id 去重；空词返回空结果
func (s *SearchService) SearchUsers(ctx context.Context, term string) ([]*model.User, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []*model.User{}, nil
	}

	byName, err := s.users.SearchPrefix(ctx, repository.ColumnUsername, term, SearchLimit)
	if err != nil {
		return nil, err
	}
	byCustomID, err := s.users.SearchPrefix(ctx, repository.ColumnCustomID, term, SearchLimit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(byName)+len(byCustomID))
	out := make([]*model.User, 0, len(byName)+len(byCustomID))
	for _, list := range [][]*model.User{byName, byCustomID} {
		for _, u := range list {
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			out = append(out, u)
		}
	}
	return out, nil
}
