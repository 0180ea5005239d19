package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/message"
)

const (
	notificationColumns = `id, user_id, title, body, kind, is_read, created_at`
	messageColumns      = `id, sender_id, receiver_id, subject, body, is_read, created_at`
)

type notificationRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Title     string      `db:"title"`
	Body      null.String `db:"body"`
	Kind      string      `db:"kind"`
	IsRead    bool        `db:"is_read"`
	CreatedAt null.Time   `db:"created_at"`
}

func (row notificationRow) toNotification() message.Notification {
	return message.Notification{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		Body:      row.Body.String,
		Kind:      row.Kind,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt.Time,
	}
}

type messageRow struct {
	ID         string      `db:"id"`
	SenderID   string      `db:"sender_id"`
	ReceiverID string      `db:"receiver_id"`
	Subject    null.String `db:"subject"`
	Body       null.String `db:"body"`
	IsRead     bool        `db:"is_read"`
	CreatedAt  null.Time   `db:"created_at"`
}

func (row messageRow) toMessage() message.Message {
	return message.Message{
		ID:         row.ID,
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Subject:    row.Subject.String,
		Body:       row.Body.String,
		IsRead:     row.IsRead,
		CreatedAt:  row.CreatedAt.Time,
	}
}

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil)

func NewMessageRepository(db *sqlx.DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateNotification(ctx context.Context, ntf message.Notification, exec ...core.DBExecutor) (message.Notification, error) {
	ntf.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO notification (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ntf.ID, ntf.UserID, ntf.Title, nullString(ntf.Body), ntf.Kind, ntf.IsRead, nullTime(ntf.CreatedAt),
	)
	if err != nil {
		return message.Notification{}, errors.Wrap(err, "creating notification")
	}
	return ntf, nil
}

func (repo *messageRepository) QueryNotifications(ctx context.Context, userID string, exec ...core.DBExecutor) ([]message.Notification, error) {
	var rows []notificationRow
	err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows,
		`SELECT `+notificationColumns+` FROM notification WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ntfs := make([]message.Notification, len(rows))
	for i, row := range rows {
		ntfs[i] = row.toNotification()
	}
	return ntfs, nil
}

func (repo *messageRepository) GetNotification(ctx context.Context, userID, id string, exec ...core.DBExecutor) (message.Notification, error) {
	var row notificationRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`SELECT `+notificationColumns+` FROM notification WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return message.Notification{}, message.ErrNotificationNotFound
		}
		return message.Notification{}, errors.Wrap(err, "getting notification")
	}
	return row.toNotification(), nil
}

func (repo *messageRepository) MarkNotificationRead(ctx context.Context, userID, id string, exec ...core.DBExecutor) (message.Notification, error) {
	var row notificationRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`UPDATE notification SET is_read = TRUE WHERE id = $1 AND user_id = $2 RETURNING `+notificationColumns,
		id, userID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return message.Notification{}, message.ErrNotificationNotFound
		}
		return message.Notification{}, errors.Wrap(err, "marking notification read")
	}
	return row.toNotification(), nil
}

func (repo *messageRepository) CountUnreadNotifications(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &count,
		`SELECT COUNT(*) FROM notification WHERE user_id = $1 AND NOT is_read`, userID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg message.Message, exec ...core.DBExecutor) (message.Message, error) {
	msg.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO message (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.SenderID, msg.ReceiverID, nullString(msg.Subject), nullString(msg.Body), msg.IsRead, nullTime(msg.CreatedAt),
	)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "creating message")
	}
	return msg, nil
}

func (repo *messageRepository) QueryMessages(ctx context.Context, userID string, exec ...core.DBExecutor) ([]message.Message, error) {
	var rows []messageRow
	err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows,
		`SELECT `+messageColumns+` FROM message WHERE sender_id = $1 OR receiver_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]message.Message, len(rows))
	for i, row := range rows {
		msgs[i] = row.toMessage()
	}
	return msgs, nil
}

func (repo *messageRepository) GetMessage(ctx context.Context, userID, id string, exec ...core.DBExecutor) (message.Message, error) {
	var row messageRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`SELECT `+messageColumns+` FROM message WHERE id = $1 AND (sender_id = $2 OR receiver_id = $2)`,
		id, userID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrMessageNotFound
		}
		return message.Message{}, errors.Wrap(err, "getting message")
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) MarkMessageRead(ctx context.Context, receiverID, id string, exec ...core.DBExecutor) (message.Message, error) {
	var row messageRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`UPDATE message SET is_read = TRUE WHERE id = $1 AND receiver_id = $2 RETURNING `+messageColumns,
		id, receiverID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrMessageNotFound
		}
		return message.Message{}, errors.Wrap(err, "marking message read")
	}
	return row.toMessage(), nil
}
