package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DueDispatcher sends scheduled notifications whose time has come.
type DueDispatcher interface {
	DispatchDue(ctx context.Context, now time.Time) (int, error)
}

// NotificationDispatcher delivers scheduled notifications on each tick.
type NotificationDispatcher struct {
	svc     DueDispatcher
	log     *zap.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewNotificationDispatcher(svc DueDispatcher, log *zap.Logger) *NotificationDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationDispatcher{svc: svc, log: log, now: time.Now, timeout: 30 * time.Second}
}

func (d *NotificationDispatcher) Name() string { return "notification-dispatch" }

func (d *NotificationDispatcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	n, err := d.svc.DispatchDue(ctx, d.now().UTC())
	if n > 0 {
		d.log.Info("notifications dispatched", zap.Int("count", n))
	}
	if err != nil {
		return fmt.Errorf("dispatch due notifications: %w", err)
	}
	return nil
}
