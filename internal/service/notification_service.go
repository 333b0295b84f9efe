package service

import (
	"gigwallet/internal/domain"
	"gigwallet/internal/models"
)

// Pusher delivers a payload to every live connection of a user.
type Pusher interface {
	BroadcastToUser(userID uint, payload interface{})
}

// Notification is the payload pushed to clients.
type Notification struct {
	Type  string                 `json:"type"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// NotificationService turns committed payment changes into pushes to both
// parties. Delivery is best effort.
type NotificationService struct {
	pusher Pusher
}

func NewNotificationService(pusher Pusher) *NotificationService {
	return &NotificationService{pusher: pusher}
}

func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s == nil || s.pusher == nil {
		return
	}
	s.pusher.BroadcastToUser(userID, Notification{Type: notifType, Title: title, Body: body, Data: data})
}

// PaymentUpdated implements Notifier.
func (s *NotificationService) PaymentUpdated(p *models.Payment) {
	data := map[string]interface{}{
		"payment_id": p.ID,
		"project_id": p.ProjectID,
		"status":     p.Status,
		"amount":     p.Amount.StringFixed(2),
		"net_amount": p.NetAmount.StringFixed(2),
	}
	switch p.Status {
	case domain.PaymentStatusEscrowHold:
		s.Notify(p.FromUserID, "ESCROW_FUNDED", "Escrow funded", "Your payment is held in escrow.", data)
		s.Notify(p.ToUserID, "ESCROW_FUNDED", "Escrow funded", "The client funded escrow for your project.", data)
	case domain.PaymentStatusReleased:
		s.Notify(p.FromUserID, "PAYMENT_RELEASED", "Payment released", "You released the escrowed payment.", data)
		s.Notify(p.ToUserID, "PAYMENT_RELEASED", "Payment received", "Escrow was released to your wallet.", data)
	case domain.PaymentStatusRefunded:
		data["reason"] = p.RefundReason
		s.Notify(p.FromUserID, "PAYMENT_REFUNDED", "Payment refunded", "Escrow was refunded to your wallet.", data)
		s.Notify(p.ToUserID, "PAYMENT_REFUNDED", "Payment refunded", "The escrowed payment was refunded to the client.", data)
	}
}
