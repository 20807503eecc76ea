package mailer

// Template names used by the notification service.
const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateAdminOrderAlert   = "admin_order_alert"
)

const baseTemplates = `
{{define "order_confirmation"}}
<html>
  <body>
    <h2>Thank you for your order, {{.BuyerName}}!</h2>
    <p>Your order <strong>{{.OrderNumber}}</strong> has been received.</p>
    <p>Total: <strong>{{printf "%.2f" .TotalAmount}}</strong></p>
    <p>We will notify you as your order moves through delivery.</p>
  </body>
</html>
{{end}}

{{define "admin_order_alert"}}
<html>
  <body>
    <h2>New order placed</h2>
    <p>Order <strong>{{.OrderNumber}}</strong> for {{printf "%.2f" .TotalAmount}}.</p>
    <p>Buyer: {{.BuyerName}} ({{.BuyerEmail}})</p>
  </body>
</html>
{{end}}
`
