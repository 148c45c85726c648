package notify

import (
	"net/http"

	"taxi-booking/pkg/email"
	"taxi-booking/pkg/utils"

	"github.com/labstack/echo/v4"
)

// SendEmailRequest is the body of POST /api/send-email.
type SendEmailRequest struct {
	To      string `json:"to" validate:"required,email"`
	From    string `json:"from" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"required"`
	HTML    string `json:"html" validate:"required_without=Text"`
	Text    string `json:"text"`
}

type sendEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EmailHandler exposes the raw send-email endpoint.
type EmailHandler struct {
	sender email.ServiceInterface
}

func NewEmailHandler(sender email.ServiceInterface) *EmailHandler {
	return &EmailHandler{sender: sender}
}

// SendEmail handles POST /api/send-email.
func (h *EmailHandler) SendEmail(c echo.Context) error {
	var req SendEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, sendEmailResponse{Error: "Invalid request body"})
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, sendEmailResponse{Error: "Validation failed: " + err.Error()})
	}

	err := h.sender.SendEmail(c.Request().Context(), email.Message{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})
	if err != nil {
		c.Logger().Error("EmailHandler.SendEmail: ", err)
		return c.JSON(http.StatusInternalServerError, sendEmailResponse{Error: "Failed to send email"})
	}
	return c.JSON(http.StatusOK, sendEmailResponse{Success: true, Message: "Email sent"})
}
