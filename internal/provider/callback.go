package provider

import (
	"net/url"
	"strings"
)

// CallbackURLs returns the success and error URLs a provider redirects the
// payer to, both carrying the payment reference.
func CallbackURLs(base, name, reference string) (success, failure string) {
	base = strings.TrimRight(base, "/")
	q := "?reference=" + url.QueryEscape(reference)
	return base + "/success-" + name + q, base + "/error-" + name + q
}
