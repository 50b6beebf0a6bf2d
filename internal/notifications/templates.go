package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/mailer"
)

func money(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

var templateFuncs = map[string]any{
	"money": money,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

const confirmationText = `Hi {{.Order.CustomerName}},

Your order #{{.Order.OrderNumber}} at {{.StoreName}} was received.
{{range .Order.Items}}
- {{.Quantity}}x {{.ProductName}}{{with .Size}} ({{deref .}}){{end}}: {{money .LineTotal}}{{end}}

Subtotal: {{money .Order.Subtotal}}
Shipping: {{money .Order.ShippingCost}}
Total: {{money .Order.TotalAmount}}

Shipping to: {{.Order.ShippingAddress.OneLine}}
`

const confirmationHTML = `<h2>Thanks for your order, {{.Order.CustomerName}}!</h2>
<p>Order <strong>#{{.Order.OrderNumber}}</strong> at {{.StoreName}} was received.</p>
<table>
{{range .Order.Items}}<tr><td>{{.Quantity}}x {{.ProductName}}{{with .Size}} ({{deref .}}){{end}}</td><td>{{money .LineTotal}}</td></tr>
{{end}}</table>
<p>Subtotal: {{money .Order.Subtotal}}<br>Shipping: {{money .Order.ShippingCost}}<br><strong>Total: {{money .Order.TotalAmount}}</strong></p>
<p>Shipping to: {{.Order.ShippingAddress.OneLine}}</p>
`

const shippedText = `Hi {{.Event.CustomerName}},

Your order #{{.Event.OrderNumber}} at {{.StoreName}} is on its way.
{{with .Event.TrackingCode}}Tracking code: {{deref .}}
{{end}}`

const shippedHTML = `<h2>Your order is on its way!</h2>
<p>Order <strong>#{{.Event.OrderNumber}}</strong> at {{.StoreName}} has shipped.</p>
{{with .Event.TrackingCode}}<p>Tracking code: <strong>{{deref .}}</strong></p>{{end}}
`

const paymentText = `Hi {{.Event.CustomerName}},

Payment for order #{{.Event.OrderNumber}} at {{.StoreName}} was approved. We are preparing your jerseys.
`

const paymentHTML = `<h2>Payment approved</h2>
<p>Payment for order <strong>#{{.Event.OrderNumber}}</strong> at {{.StoreName}} was approved. We are preparing your jerseys.</p>
`

// emailTemplate pairs the plain text and HTML renderings of one email.
type emailTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func newEmailTemplate(name, subject, text, html string) emailTemplate {
	return emailTemplate{
		subject: subject,
		text:    texttemplate.Must(texttemplate.New(name).Funcs(templateFuncs).Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name).Funcs(templateFuncs).Parse(html)),
	}
}

var (
	confirmationEmail = newEmailTemplate("order_confirmation", "Order #%s confirmed", confirmationText, confirmationHTML)
	shippedEmail      = newEmailTemplate("order_shipped", "Order #%s shipped", shippedText, shippedHTML)
	paymentEmail      = newEmailTemplate("payment_approved", "Payment approved for order #%s", paymentText, paymentHTML)
)

func (t emailTemplate) render(to, orderNumber string, data any) (mailer.Message, error) {
	var text, html bytes.Buffer
	if err := t.text.Execute(&text, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render html: %w", err)
	}
	return mailer.Message{
		To:      to,
		Subject: fmt.Sprintf(t.subject, orderNumber),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
