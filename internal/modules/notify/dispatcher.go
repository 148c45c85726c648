// Package notify sends the new-order emails to the operator and the customer.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/email"
)

// Alerter posts a short new-order alert to a chat channel.
type Alerter interface {
	AlertNewOrder(ctx context.Context, order *models.Order, text string) error
}

// AdminResult reports how the admin notification went. When no transport
// delivered the email, MailtoLink holds a pre-filled link the operator can
// open by hand.
type AdminResult struct {
	Delivered  bool   `json:"delivered"`
	MailtoLink string `json:"mailto_link,omitempty"`
}

// Config carries the addresses and links used in the emails.
type Config struct {
	AdminEmail   string
	FromEmail    string
	Currency     string
	ClientOrigin string
}

// Dispatcher renders and sends order notifications.
type Dispatcher struct {
	sender    email.ServiceInterface
	templates *email.TemplateManager
	alerter   Alerter
	cfg       Config
}

// NewDispatcher creates a dispatcher. alerter may be nil.
func NewDispatcher(sender email.ServiceInterface, templates *email.TemplateManager, alerter Alerter, cfg Config) *Dispatcher {
	return &Dispatcher{sender: sender, templates: templates, alerter: alerter, cfg: cfg}
}

func (d *Dispatcher) templateData(order *models.Order) email.OrderTemplateData {
	data := email.OrderTemplateData{
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		PickupDate:    order.PickupDate,
		PickupTime:    order.PickupTime,
		StartAddress:  order.StartAddress,
		EndAddress:    order.EndAddress,
		DistanceKm:    fmt.Sprintf("%.1f", order.Distance/1000),
		Price:         order.Price,
		Currency:      d.cfg.Currency,
	}
	if order.AdditionalNotes != nil {
		data.Notes = *order.AdditionalNotes
	}
	if order.PaymentURL != nil {
		data.PaymentURL = *order.PaymentURL
	}
	if d.cfg.ClientOrigin != "" {
		data.AdminLink = d.cfg.ClientOrigin + "/admin?order=" + url.QueryEscape(order.ID)
	}
	return data
}

func adminSubject(order *models.Order) string {
	return fmt.Sprintf("New taxi order from %s (%s %s)", order.CustomerName, order.PickupDate, order.PickupTime)
}

// SendAdminNotification emails the operator about a new order and posts the
// optional chat alert.
func (d *Dispatcher) SendAdminNotification(ctx context.Context, order *models.Order) AdminResult {
	data := d.templateData(order)
	subject := adminSubject(order)

	html, text, err := d.templates.RenderAdminOrder(data)
	if err != nil {
		log.Printf("Failed to render admin email for order %s: %v", order.ID, err)
		return AdminResult{MailtoLink: MailtoLink(d.cfg.AdminEmail, subject, subject)}
	}

	if d.alerter != nil {
		if err := d.alerter.AlertNewOrder(ctx, order, text); err != nil {
			log.Printf("Failed to post chat alert for order %s: %v", order.ID, err)
		}
	}

	if d.cfg.AdminEmail == "" {
		log.Printf("ADMIN_EMAIL is not set; admin email for order %s skipped", order.ID)
		return AdminResult{}
	}

	err = d.sender.SendEmail(ctx, email.Message{
		From:    d.cfg.FromEmail,
		To:      d.cfg.AdminEmail,
		Subject: subject,
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		link := MailtoLink(d.cfg.AdminEmail, subject, text)
		log.Printf("Admin email for order %s failed: %v; send manually: %s", order.ID, err, link)
		return AdminResult{MailtoLink: link}
	}
	return AdminResult{Delivered: true}
}

// SendCustomerConfirmation emails the booking confirmation to the customer.
func (d *Dispatcher) SendCustomerConfirmation(ctx context.Context, order *models.Order) error {
	html, text, err := d.templates.RenderCustomerOrder(d.templateData(order))
	if err != nil {
		return fmt.Errorf("notify.SendCustomerConfirmation render: %w", err)
	}
	err = d.sender.SendEmail(ctx, email.Message{
		From:    d.cfg.FromEmail,
		To:      order.CustomerEmail,
		Subject: "Your taxi booking " + order.ID,
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("notify.SendCustomerConfirmation: %w", err)
	}
	return nil
}

// NotifyNewOrder sends both notifications. Failures are logged only.
func (d *Dispatcher) NotifyNewOrder(ctx context.Context, order *models.Order) {
	d.SendAdminNotification(ctx, order)
	if err := d.SendCustomerConfirmation(ctx, order); err != nil {
		log.Printf("Customer confirmation for order %s failed: %v", order.ID, err)
	}
}

// MailtoLink builds a mailto: URL with the subject and body pre-filled.
func MailtoLink(to, subject, body string) string {
	q := url.Values{}
	q.Set("subject", subject)
	q.Set("body", body)
	// mail clients expect %20 rather than + for spaces
	return "mailto:" + to + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}
