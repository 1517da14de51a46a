package service

import (
	"fmt"
	"strings"

	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"github.com/verdantleaf/storefront-backend/pkg/mailer"
)

// NotificationService composes and sends transactional email. Delivery
// is best effort; callers never fail an order or contact submission
// because mail could not be sent.
type NotificationService interface {
	SendOrderConfirmation(order *model.Order)
	NotifyCompanyOfOrder(order *model.Order)
	SendContactFormNotification(message *model.ContactMessage)
	SendPasswordRecovery(user *model.User, tempPassword string)
	SendNewsletterWelcome(email, discountCode string)
}

type notificationService struct {
	mailer *mailer.Mailer
	cfg    config.MailConfig
}

func NewNotificationService(m *mailer.Mailer, cfg config.MailConfig) NotificationService {
	return &notificationService{mailer: m, cfg: cfg}
}

func (s *notificationService) SendOrderConfirmation(order *model.Order) {
	logger.Info("Sending order confirmation email", map[string]interface{}{
		"order_number": order.Number,
		"to":           order.Email,
	})

	text, html := composeOrderEmail(order, false)
	s.send(mailer.Message{
		To:      order.Email,
		Subject: fmt.Sprintf("Your Verdantleaf order %s is confirmed", order.Number),
		Text:    text,
		HTML:    html,
	})
}

func (s *notificationService) NotifyCompanyOfOrder(order *model.Order) {
	if s.cfg.CompanyEmail == "" {
		logger.Warn("Company email not configured, skipping order notification", map[string]interface{}{
			"order_number": order.Number,
		})
		return
	}

	text, html := composeOrderEmail(order, true)
	s.send(mailer.Message{
		To:      s.cfg.CompanyEmail,
		Subject: fmt.Sprintf("New order %s (%.2f %s)", order.Number, order.Total, "USD"),
		Text:    text,
		HTML:    html,
	})
}

func (s *notificationService) SendContactFormNotification(message *model.ContactMessage) {
	if s.cfg.CompanyEmail == "" {
		logger.Warn("Company email not configured, skipping contact notification", map[string]interface{}{
			"from": message.Email,
		})
		return
	}

	subject := message.Subject
	if subject == "" {
		subject = "New contact form message"
	}

	text := fmt.Sprintf(
		"New message from the contact form.\n\nName: %s\nEmail: %s\nSubject: %s\n\n%s\n",
		message.Name, message.Email, message.Subject, message.Message,
	)
	html := fmt.Sprintf(
		"<h2>New contact form message</h2><p><strong>Name:</strong> %s<br><strong>Email:</strong> %s<br><strong>Subject:</strong> %s</p><p>%s</p>",
		message.Name, message.Email, message.Subject, message.Message,
	)

	s.send(mailer.Message{
		To:      s.cfg.CompanyEmail,
		Subject: subject,
		Text:    text,
		HTML:    html,
	})
}

func (s *notificationService) SendPasswordRecovery(user *model.User, tempPassword string) {
	logger.Info("Sending password recovery email", map[string]interface{}{
		"user_id": user.ID,
	})

	text := fmt.Sprintf(
		"Hi %s,\n\nA temporary password was requested for your account.\n\nTemporary password: %s\n\nIt is valid for 24 hours and can be used once. After signing in you will be asked to choose a new password.\n\nIf you did not request this, you can ignore this email.\n",
		user.Name, tempPassword,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>A temporary password was requested for your account.</p><p><strong>Temporary password:</strong> <code>%s</code></p><p>It is valid for 24 hours and can be used once. After signing in you will be asked to choose a new password.</p><p>If you did not request this, you can ignore this email.</p>",
		user.Name, tempPassword,
	)

	s.send(mailer.Message{
		To:      user.Email,
		Subject: "Your temporary Verdantleaf password",
		Text:    text,
		HTML:    html,
	})
}

func (s *notificationService) SendNewsletterWelcome(email, discountCode string) {
	logger.Info("Sending newsletter welcome email", map[string]interface{}{
		"to": email,
	})

	text := fmt.Sprintf(
		"Welcome to the Verdantleaf newsletter!\n\nAs a thank you, here is a discount code for your first order: %s\n\nIt takes 10%% off your order subtotal and can be used once.\n",
		discountCode,
	)
	html := fmt.Sprintf(
		"<h2>Welcome to the Verdantleaf newsletter!</h2><p>As a thank you, here is a discount code for your first order:</p><p><strong><code>%s</code></strong></p><p>It takes 10%% off your order subtotal and can be used once.</p>",
		discountCode,
	)

	s.send(mailer.Message{
		To:      email,
		Subject: "Welcome to Verdantleaf",
		Text:    text,
		HTML:    html,
	})
}

func (s *notificationService) send(msg mailer.Message) {
	if err := s.mailer.Send(msg); err != nil {
		logger.Error("Failed to send notification email", err, map[string]interface{}{
			"to":      msg.To,
			"subject": msg.Subject,
		})
	}
}

// composeOrderEmail renders the order summary for the customer or, when
// internal is set, for the company inbox.
func composeOrderEmail(order *model.Order, internal bool) (text, html string) {
	var tb, hb strings.Builder

	if internal {
		tb.WriteString(fmt.Sprintf("New order %s from %s <%s>.\n\n", order.Number, order.Name, order.Email))
		hb.WriteString(fmt.Sprintf("<h2>New order %s</h2><p>From %s &lt;%s&gt;</p>", order.Number, order.Name, order.Email))
	} else {
		tb.WriteString(fmt.Sprintf("Hi %s,\n\nThank you for your order! Here is your summary for order %s.\n\n", order.Name, order.Number))
		hb.WriteString(fmt.Sprintf("<h2>Thank you for your order, %s!</h2><p>Order number: <strong>%s</strong></p>", order.Name, order.Number))
	}

	hb.WriteString("<table><tr><th>Item</th><th>Qty</th><th>Price</th></tr>")
	for _, item := range order.Items {
		tb.WriteString(fmt.Sprintf("  %s x%d  %.2f\n", item.ProductName, item.Quantity, item.Price))
		hb.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%d</td><td>%.2f</td></tr>", item.ProductName, item.Quantity, item.Price))
	}
	hb.WriteString("</table>")

	tb.WriteString(fmt.Sprintf("\nSubtotal: %.2f\n", order.Subtotal))
	hb.WriteString(fmt.Sprintf("<p>Subtotal: %.2f<br>", order.Subtotal))
	if order.DiscountAmount > 0 {
		tb.WriteString(fmt.Sprintf("Discount (%s): -%.2f\n", order.DiscountCode, order.DiscountAmount))
		hb.WriteString(fmt.Sprintf("Discount (%s): -%.2f<br>", order.DiscountCode, order.DiscountAmount))
	}
	tb.WriteString(fmt.Sprintf("Shipping (%s): %.2f\nTotal: %.2f\n", order.ShippingMethodName, order.ShippingCost, order.Total))
	hb.WriteString(fmt.Sprintf("Shipping (%s): %.2f<br><strong>Total: %.2f</strong></p>", order.ShippingMethodName, order.ShippingCost, order.Total))

	tb.WriteString(fmt.Sprintf("\nShipping to:\n%s\n%s", order.AddressLine1, order.City))
	hb.WriteString(fmt.Sprintf("<p>Shipping to:<br>%s<br>%s</p>", order.AddressLine1, order.City))

	return tb.String(), hb.String()
}
