package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/message"
)

type messageRepository struct {
	db *DB
}

var _ message.Repository = (*messageRepository)(nil)

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateNotification(_ context.Context, ntf message.Notification, _ ...core.DBExecutor) (message.Notification, error) {
	repo.db.notification.mutex.Lock()
	defer repo.db.notification.mutex.Unlock()

	ntf.ID = uuid.New().String()
	repo.db.notification.t[ntf.ID] = &ntf
	return ntf, nil
}

func (repo *messageRepository) QueryNotifications(_ context.Context, userID string, _ ...core.DBExecutor) ([]message.Notification, error) {
	repo.db.notification.mutex.RLock()
	defer repo.db.notification.mutex.RUnlock()

	res := make([]message.Notification, 0)
	for _, ntf := range repo.db.notification.t {
		if ntf.UserID == userID {
			res = append(res, *ntf)
		}
	}
	// newest first
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (repo *messageRepository) GetNotification(_ context.Context, userID, id string, _ ...core.DBExecutor) (message.Notification, error) {
	repo.db.notification.mutex.RLock()
	defer repo.db.notification.mutex.RUnlock()

	if ntf, ok := repo.db.notification.t[id]; ok && ntf.UserID == userID {
		return *ntf, nil
	}
	return message.Notification{}, message.ErrNotificationNotFound
}

func (repo *messageRepository) MarkNotificationRead(_ context.Context, userID, id string, _ ...core.DBExecutor) (message.Notification, error) {
	repo.db.notification.mutex.Lock()
	defer repo.db.notification.mutex.Unlock()

	ntf, ok := repo.db.notification.t[id]
	if !ok || ntf.UserID != userID {
		return message.Notification{}, message.ErrNotificationNotFound
	}
	ntf.IsRead = true
	return *ntf, nil
}

func (repo *messageRepository) CountUnreadNotifications(_ context.Context, userID string, _ ...core.DBExecutor) (int, error) {
	repo.db.notification.mutex.RLock()
	defer repo.db.notification.mutex.RUnlock()

	var count int
	for _, ntf := range repo.db.notification.t {
		if ntf.UserID == userID && !ntf.IsRead {
			count++
		}
	}
	return count, nil
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg message.Message, _ ...core.DBExecutor) (message.Message, error) {
	repo.db.message.mutex.Lock()
	defer repo.db.message.mutex.Unlock()

	msg.ID = uuid.New().String()
	repo.db.message.t[msg.ID] = &msg
	return msg, nil
}

func (repo *messageRepository) QueryMessages(_ context.Context, userID string, _ ...core.DBExecutor) ([]message.Message, error) {
	repo.db.message.mutex.RLock()
	defer repo.db.message.mutex.RUnlock()

	res := make([]message.Message, 0)
	for _, msg := range repo.db.message.t {
		if msg.SenderID == userID || msg.ReceiverID == userID {
			res = append(res, *msg)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (repo *messageRepository) GetMessage(_ context.Context, userID, id string, _ ...core.DBExecutor) (message.Message, error) {
	repo.db.message.mutex.RLock()
	defer repo.db.message.mutex.RUnlock()

	if msg, ok := repo.db.message.t[id]; ok && (msg.SenderID == userID || msg.ReceiverID == userID) {
		return *msg, nil
	}
	return message.Message{}, message.ErrMessageNotFound
}

func (repo *messageRepository) MarkMessageRead(_ context.Context, receiverID, id string, _ ...core.DBExecutor) (message.Message, error) {
	repo.db.message.mutex.Lock()
	defer repo.db.message.mutex.Unlock()

	msg, ok := repo.db.message.t[id]
	if !ok || msg.ReceiverID != receiverID {
		return message.Message{}, message.ErrMessageNotFound
	}
	msg.IsRead = true
	return *msg, nil
}
