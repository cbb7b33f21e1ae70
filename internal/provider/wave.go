package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/payments"
)

// Wave creates checkout sessions with a static bearer token. The API rejects
// unknown fields, so the body carries exactly these four.
type Wave struct {
	BaseURL      string
	Token        string
	CallbackBase string
	Client       *http.Client
	Timeout      time.Duration
}

type waveSessionRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	ErrorURL   string `json:"error_url"`
	SuccessURL string `json:"success_url"`
}

type waveSessionResponse struct {
	ID            string `json:"id"`
	WaveLaunchURL string `json:"wave_launch_url"`
}

func (w *Wave) GenerateLink(ctx context.Context, req LinkRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, w.Timeout)
	defer cancel()

	currency := req.Currency
	if currency == "" {
		currency = payments.CurrencyXOF
	}
	success, failure := CallbackURLs(w.CallbackBase, NameWave, req.Reference)
	body := waveSessionRequest{
		Amount:     req.Amount,
		Currency:   string(currency),
		ErrorURL:   failure,
		SuccessURL: success,
	}
	var out waveSessionResponse
	err := postJSON(ctx, w.client(), "wave checkout", strings.TrimRight(w.BaseURL, "/")+"/v1/checkout/sessions",
		map[string]string{"Authorization": "Bearer " + w.Token}, body, &out)
	if err != nil {
		return "", err
	}
	if out.WaveLaunchURL == "" {
		return "", missingLink("wave checkout")
	}
	return out.WaveLaunchURL, nil
}

func (w *Wave) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return NewHTTPClient(w.Timeout)
}
