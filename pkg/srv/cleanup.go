package srv

import "context"

// cleanupService wraps a close function (a DB handle, a file) in the Service
// lifecycle so it runs during the ordered shutdown pass. Start is a no-op.
type cleanupService struct {
	cleanup func() error
}

func NewCleanup(fn func() error) Service {
	return &cleanupService{cleanup: fn}
}

func (c *cleanupService) Start(ctx context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(ctx context.Context) error {
	if c.cleanup == nil {
		return nil
	}
	return c.cleanup()
}
