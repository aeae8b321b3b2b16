package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

// InvoiceEmail carries the already formatted values for an invoice email.
type InvoiceEmail struct {
	CompanyName  string
	CustomerName string
	Reference    string
	Date         string
	DueDate      string
	Total        string
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <p>Dear {{.CustomerName}},</p>
  <p>Please find attached invoice <strong>{{.Reference}}</strong> dated {{.Date}}.</p>
  <p>Amount due: <strong>{{.Total}}</strong><br>Due date: {{.DueDate}}</p>
  <p>Thank you for travelling with us.</p>
  <p>Regards,<br>{{.CompanyName}}</p>
</body>
</html>`))

// Subject returns the email subject line.
func (e InvoiceEmail) Subject() string {
	if e.CompanyName == "" {
		return fmt.Sprintf("Invoice %s", e.Reference)
	}
	return fmt.Sprintf("Invoice %s from %s", e.Reference, e.CompanyName)
}

// HTML renders the email body.
func (e InvoiceEmail) HTML() (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, e); err != nil {
		return "", fmt.Errorf("render invoice email: %w", err)
	}
	return buf.String(), nil
}
