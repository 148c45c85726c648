package email

import (
	"bytes"
	"html/template"
	"log"
	texttemplate "text/template"
)

// TemplateManager holds the parsed email templates.
type TemplateManager struct {
	AdminHTML    *template.Template
	AdminText    *texttemplate.Template
	CustomerHTML *template.Template
	CustomerText *texttemplate.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	adminHTML, err := template.New("adminHTML").Parse(adminOrderHTMLTemplate)
	if err != nil {
		return nil, err
	}
	adminText, err := texttemplate.New("adminText").Parse(adminOrderTextTemplate)
	if err != nil {
		return nil, err
	}
	customerHTML, err := template.New("customerHTML").Parse(customerOrderHTMLTemplate)
	if err != nil {
		return nil, err
	}
	customerText, err := texttemplate.New("customerText").Parse(customerOrderTextTemplate)
	if err != nil {
		return nil, err
	}

	log.Println("Email templates parsed successfully.")
	return &TemplateManager{
		AdminHTML:    adminHTML,
		AdminText:    adminText,
		CustomerHTML: customerHTML,
		CustomerText: customerText,
	}, nil
}

// OrderTemplateData holds the dynamic data for the order emails.
type OrderTemplateData struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	PickupDate    string
	PickupTime    string
	StartAddress  string
	EndAddress    string
	DistanceKm    string
	Price         int
	Currency      string
	Notes         string
	PaymentURL    string
	AdminLink     string
}

// RenderAdminOrder returns the HTML and plain-text bodies of the admin notification.
func (tm *TemplateManager) RenderAdminOrder(data OrderTemplateData) (string, string, error) {
	return render(tm.AdminHTML, tm.AdminText, data)
}

// RenderCustomerOrder returns the HTML and plain-text bodies of the customer confirmation.
func (tm *TemplateManager) RenderCustomerOrder(data OrderTemplateData) (string, string, error) {
	return render(tm.CustomerHTML, tm.CustomerText, data)
}

func render(h *template.Template, t *texttemplate.Template, data OrderTemplateData) (string, string, error) {
	var htmlBody, textBody bytes.Buffer
	if err := h.Execute(&htmlBody, data); err != nil {
		return "", "", err
	}
	if err := t.Execute(&textBody, data); err != nil {
		return "", "", err
	}
	return htmlBody.String(), textBody.String(), nil
}

// --- Template Definitions ---

const adminOrderHTMLTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>New order {{.OrderID}}</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>New taxi order</h2>
	<table cellpadding="4">
		<tr><td><b>Order</b></td><td>{{.OrderID}}</td></tr>
		<tr><td><b>Customer</b></td><td>{{.CustomerName}}</td></tr>
		<tr><td><b>Email</b></td><td>{{.CustomerEmail}}</td></tr>
		<tr><td><b>Phone</b></td><td>{{.CustomerPhone}}</td></tr>
		<tr><td><b>Pickup</b></td><td>{{.PickupDate}} {{.PickupTime}}</td></tr>
		<tr><td><b>From</b></td><td>{{.StartAddress}}</td></tr>
		<tr><td><b>To</b></td><td>{{.EndAddress}}</td></tr>
		<tr><td><b>Distance</b></td><td>{{.DistanceKm}} km</td></tr>
		<tr><td><b>Price</b></td><td>{{.Price}} {{.Currency}}</td></tr>
		{{if .Notes}}<tr><td><b>Notes</b></td><td>{{.Notes}}</td></tr>{{end}}
	</table>
	{{if .AdminLink}}<p><a href="{{.AdminLink}}">Open in admin</a></p>{{end}}
</body>
</html>
`

const adminOrderTextTemplate = `New taxi order {{.OrderID}}

Customer: {{.CustomerName}}
Email: {{.CustomerEmail}}
Phone: {{.CustomerPhone}}
Pickup: {{.PickupDate}} {{.PickupTime}}
From: {{.StartAddress}}
To: {{.EndAddress}}
Distance: {{.DistanceKm}} km
Price: {{.Price}} {{.Currency}}
{{if .Notes}}Notes: {{.Notes}}
{{end}}`

const customerOrderHTMLTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Your booking</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Thank you for your booking, {{.CustomerName}}!</h2>
	<p>We have received your order <b>{{.OrderID}}</b>.</p>
	<p>Pickup on {{.PickupDate}} at {{.PickupTime}}<br>
	From: {{.StartAddress}}<br>
	To: {{.EndAddress}}</p>
	<p>Distance: {{.DistanceKm}} km<br>
	Price: <b>{{.Price}} {{.Currency}}</b></p>
	{{if .PaymentURL}}<p><a href="{{.PaymentURL}}">Complete payment</a></p>{{end}}
	<p>If you did not make this booking, please ignore this email.</p>
</body>
</html>
`

const customerOrderTextTemplate = `Thank you for your booking, {{.CustomerName}}!

Order: {{.OrderID}}
Pickup: {{.PickupDate}} {{.PickupTime}}
From: {{.StartAddress}}
To: {{.EndAddress}}
Distance: {{.DistanceKm}} km
Price: {{.Price}} {{.Currency}}
{{if .PaymentURL}}
Complete payment: {{.PaymentURL}}
{{end}}`
