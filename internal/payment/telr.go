package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TelrGateway is the immediate-settlement provider: Authorize charges the
// card in one step, so Capture is a no-op and Release maps to a refund.
// Cards can be stored with the provider as multi-use tokens.
type TelrGateway struct {
	storeID    int
	authKey    string
	apiURL     string
	testMode   int
	httpClient *http.Client
}

func NewTelrGateway(storeID int, authKey, apiURL string, testMode bool) *TelrGateway {
	mode := 0
	if testMode {
		mode = 1
	}
	return &TelrGateway{
		storeID:    storeID,
		authKey:    authKey,
		apiURL:     apiURL,
		testMode:   mode,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *TelrGateway) Name() string { return "telr" }

type telrResponse struct {
	Transaction struct {
		Ref    string `json:"ref"`
		Status string `json:"status"`
	} `json:"transaction"`
	Card struct {
		Token string `json:"token"`
		Last4 string `json:"last4"`
		Type  string `json:"type"`
	} `json:"card"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *TelrGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	payload := map[string]interface{}{
		"method":  "charge",
		"store":   g.storeID,
		"authkey": g.authKey,
		"order": map[string]interface{}{
			"cartid":   req.Reference,
			"test":     g.testMode,
			"amount":   fmt.Sprintf("%.2f", req.Amount),
			"currency": req.Currency,
		},
		"customer": map[string]string{
			"name":  req.Customer.Name,
			"email": req.Customer.Email,
			"phone": req.Customer.Phone,
		},
	}
	if req.Token != "" {
		payload["card"] = map[string]interface{}{"token": req.Token}
	} else if req.Card != nil {
		payload["card"] = map[string]interface{}{
			"number":   req.Card.Number,
			"expmonth": req.Card.ExpMonth,
			"expyear":  req.Card.ExpYear,
			"cvv":      req.Card.CVV,
			"store":    req.SaveCard,
		}
	} else {
		return nil, &ProviderError{Provider: g.Name(), Code: "missing_card", Message: "no card or token supplied"}
	}

	res, err := g.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	if res.Transaction.Status != "A" && res.Transaction.Status != "H" {
		return nil, &ProviderError{Provider: g.Name(), Code: res.Transaction.Status, Message: "transaction declined"}
	}

	return &AuthorizeResult{
		TransactionID: res.Transaction.Ref,
		SavedToken:    res.Card.Token,
		Captured:      true,
	}, nil
}

// Capture is a no-op: charges settle at authorize time on this provider.
func (g *TelrGateway) Capture(ctx context.Context, transactionID string, amount float64) error {
	return nil
}

func (g *TelrGateway) Release(ctx context.Context, transactionID string) error {
	return g.reversal(ctx, "refund", transactionID)
}

func (g *TelrGateway) Void(ctx context.Context, transactionID string) error {
	return g.reversal(ctx, "void", transactionID)
}

func (g *TelrGateway) reversal(ctx context.Context, method, transactionID string) error {
	_, err := g.post(ctx, map[string]interface{}{
		"method":  method,
		"store":   g.storeID,
		"authkey": g.authKey,
		"transaction": map[string]string{
			"ref": transactionID,
		},
	})
	return err
}

func (g *TelrGateway) Tokenize(ctx context.Context, card Card) (*TokenizeResult, error) {
	res, err := g.post(ctx, map[string]interface{}{
		"method":  "store",
		"store":   g.storeID,
		"authkey": g.authKey,
		"card": map[string]interface{}{
			"number":   card.Number,
			"expmonth": card.ExpMonth,
			"expyear":  card.ExpYear,
			"cvv":      card.CVV,
		},
	})
	if err != nil {
		return nil, err
	}
	if res.Card.Token == "" {
		return nil, &ProviderError{Provider: g.Name(), Code: "no_token", Message: "provider returned no token"}
	}
	return &TokenizeResult{
		Token:    res.Card.Token,
		Brand:    res.Card.Type,
		Last4:    res.Card.Last4,
		ExpMonth: card.ExpMonth,
		ExpYear:  card.ExpYear,
	}, nil
}

func (g *TelrGateway) post(ctx context.Context, payload map[string]interface{}) (*telrResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Code: "encode", Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Code: "request", Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Code: "unreachable", Message: "failed to reach provider", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: g.Name(),
			Code:     fmt.Sprintf("http_%d", resp.StatusCode),
			Message:  "provider returned an error status",
		}
	}

	var out telrResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProviderError{Provider: g.Name(), Code: "decode", Message: "failed to parse provider response", Err: err}
	}
	if out.Error != nil {
		return nil, &ProviderError{Provider: g.Name(), Code: out.Error.Code, Message: out.Error.Message}
	}
	return &out, nil
}
