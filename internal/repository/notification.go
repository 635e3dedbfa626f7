package repository

import (
	"context"

	"github.com/pkg/errors"

	"github.com/deppfellow/careportal/internal/model"
	"github.com/deppfellow/careportal/internal/server"
)

type NotificationRepository struct {
	server *server.Server
}

func NewNotificationRepository(s *server.Server) *NotificationRepository {
	return &NotificationRepository{server: s}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n model.Notification) error {
	_, err := r.server.DB.Pool.Exec(ctx,
		`INSERT INTO notifications (user_id, message) VALUES ($1, $2)`,
		n.UserID, n.Message,
	)
	if err != nil {
		return errors.Wrap(err, "insert notification")
	}
	return nil
}
