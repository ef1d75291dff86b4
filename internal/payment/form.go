package payment

import (
	"html/template"
	"io"
)

// FormPage is the receipt page that hands the customer's browser over to the
// gateway.
type FormPage struct {
	Action    string
	Fields    []Field
	CancelURL string
	// AutoSubmit posts the form on load. It is only set in live mode so test
	// payments can be inspected before submission.
	AutoSubmit bool
}

var formTemplate = template.Must(template.New("absa_pay_form").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Absa Pay</title></head>
<body>
<p>Thank you for your order, please click the button below to pay with Absa Pay.</p>
<form action="{{.Action}}" method="post" id="absa_pay_payment_form">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}" />
{{- end}}
<input type="submit" class="button alt" value="Pay via Absa Pay" />
<a class="button cancel" href="{{.CancelURL}}">Cancel order &amp; restore cart</a>
</form>
{{- if .AutoSubmit}}
<script>document.getElementById("absa_pay_payment_form").submit();</script>
{{- end}}
</body>
</html>
`))

// RenderForm writes the receipt page. All values are HTML-escaped.
func RenderForm(w io.Writer, page FormPage) error {
	return formTemplate.Execute(w, page)
}
