package message

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/user"
)

var (
	// errors
	ErrNotificationNotFound = errors.New("notification not found")
	ErrMessageNotFound      = errors.New("message not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, ntf Notification, exec ...core.DBExecutor) (Notification, error)
		// QueryNotifications only ever returns the addressee's notifications.
		QueryNotifications(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Notification, error)
		GetNotification(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Notification, error)
		MarkNotificationRead(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Notification, error)
		CountUnreadNotifications(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)

		CreateMessage(ctx context.Context, msg Message, exec ...core.DBExecutor) (Message, error)
		// QueryMessages returns messages the user sent or received.
		QueryMessages(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Message, error)
		GetMessage(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Message, error)
		// MarkMessageRead only matches messages addressed to receiverID.
		MarkMessageRead(ctx context.Context, receiverID, id string, exec ...core.DBExecutor) (Message, error)
	}

	Service interface {
		Notify(ctx context.Context, userID, title, body, kind string) (Notification, error)
		Notifications(ctx context.Context, ident access.Identity) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, ident access.Identity, id string) (Notification, error)

		Send(ctx context.Context, ident access.Identity, nm NewMessage) (Message, error)
		Messages(ctx context.Context, ident access.Identity) ([]Message, error)
		MarkMessageRead(ctx context.Context, ident access.Identity, id string) (Message, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
	}
}

func (svc *service) Notify(ctx context.Context, userID, title, body, kind string) (Notification, error) {
	ntf := Notification{
		UserID:    userID,
		Title:     title,
		Body:      body,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if ntf.Kind == "" {
		ntf.Kind = KindInfo
	}
	return svc.repo.CreateNotification(ctx, ntf)
}

func (svc *service) Notifications(ctx context.Context, ident access.Identity) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, ident.UserID)
}

func (svc *service) MarkNotificationRead(ctx context.Context, ident access.Identity, id string) (Notification, error) {
	return svc.repo.MarkNotificationRead(ctx, ident.UserID, id)
}

func (svc *service) Send(ctx context.Context, ident access.Identity, nm NewMessage) (Message, error) {
	receiver, err := svc.usrSvc.GetByID(ctx, nm.ReceiverID)
	if err != nil {
		if err == user.ErrNotFound {
			return Message{}, core.NewValidationError(nil, core.FieldError{Field: "receiver_id", Error: "recipient not found"})
		}
		return Message{}, err
	}

	msg := Message{
		SenderID:   ident.UserID,
		ReceiverID: receiver.ID,
		Subject:    nm.Subject,
		Body:       nm.Body,
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateMessage(ctx, msg)
}

func (svc *service) Messages(ctx context.Context, ident access.Identity) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, ident.UserID)
}

func (svc *service) MarkMessageRead(ctx context.Context, ident access.Identity, id string) (Message, error) {
	return svc.repo.MarkMessageRead(ctx, ident.UserID, id)
}
