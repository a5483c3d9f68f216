package service

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageBounds page 从 1 开始，返回 offset / limit
func pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return (page - 1) * pageSize, pageSize
}
