// Package statistics computes daily sales figures and reports them by mail.
package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/cafe-kiosk/internal/domain/order"
)

// MailClient delivers a single mail message. Delivery is an external
// collaborator; implementations decide transport.
type MailClient interface {
	SendEmail(ctx context.Context, from, to, subject, content string) (bool, error)
}

// MailSendHistory records one delivered statistics mail.
type MailSendHistory struct {
	ID        int64
	From      string
	To        string
	Subject   string
	Content   string
	CreatedAt time.Time
}

// HistoryRepository persists mail delivery records.
type HistoryRepository interface {
	Create(ctx context.Context, h *MailSendHistory) error
}

const senderAddress = "no-reply@cafekiosk.dev"

// Service sends the daily revenue summary for payment-completed orders.
type Service struct {
	orders  order.QueryRepository
	mail    MailClient
	history HistoryRepository
}

// NewService creates a statistics Service.
func NewService(orders order.QueryRepository, mail MailClient, history HistoryRepository) *Service {
	return &Service{orders: orders, mail: mail, history: history}
}

// SendOrderStatisticsMail totals all payment-completed orders registered on
// day and mails the figure to the given address. A delivery record is stored
// on success.
func (s *Service) SendOrderStatisticsMail(ctx context.Context, day time.Time, to string) (bool, error) {
	status := order.StatusPaymentCompleted
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	orders, err := s.orders.SearchByStatusAndDate(ctx, order.SearchCond{
		Status: &status,
		Date:   &date,
	})
	if err != nil {
		return false, errors.Wrap(err, "search completed orders")
	}

	var total int64
	for _, o := range orders {
		total += o.TotalPrice
	}

	subject := fmt.Sprintf("Sales summary for %s", date.Format("2006-01-02"))
	content := fmt.Sprintf("Total revenue: %d", total)

	sent, err := s.mail.SendEmail(ctx, senderAddress, to, subject, content)
	if err != nil {
		return false, errors.Wrap(err, "send statistics mail")
	}
	if !sent {
		return false, errors.New("statistics mail was not sent")
	}

	err = s.history.Create(ctx, &MailSendHistory{
		From:    senderAddress,
		To:      to,
		Subject: subject,
		Content: content,
	})
	if err != nil {
		return false, errors.Wrap(err, "record mail history")
	}
	return true, nil
}
