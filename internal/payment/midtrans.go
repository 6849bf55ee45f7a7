package payment

import (
	"context"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

// MidtransGateway is the hold-based provider: authorize places a hold,
// capture settles it, release/void cancel it. Cards can be vaulted into
// multi-use tokens.
type MidtransGateway struct {
	client coreapi.Client
}

func NewMidtransGateway(serverKey, clientKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	g := &MidtransGateway{}
	g.client.New(serverKey, env)
	g.client.ClientKey = clientKey
	return g
}

func (g *MidtransGateway) Name() string { return "midtrans" }

func (g *MidtransGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	token := req.Token
	if token == "" {
		if req.Card == nil {
			return nil, g.failure("missing_card", "no card or token supplied", nil)
		}
		res, midErr := g.client.CardToken(req.Card.Number, req.Card.ExpMonth, req.Card.ExpYear, req.Card.CVV, g.client.ClientKey)
		if midErr != nil {
			return nil, g.wrap(midErr)
		}
		token = res.TokenID
	}

	chargeReq := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeCreditCard,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: int64(req.Amount),
		},
		CreditCard: &coreapi.CreditCardDetails{
			TokenID:        token,
			Authentication: true,
			Type:           "authorize",
			SaveTokenID:    req.SaveCard,
		},
		CustomerDetails: &midtrans.CustomerDetails{
			FName: req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
	}

	res, midErr := g.client.ChargeTransaction(chargeReq)
	if midErr != nil {
		return nil, g.wrap(midErr)
	}

	switch res.TransactionStatus {
	case "authorize", "capture", "settlement":
		return &AuthorizeResult{
			TransactionID: res.TransactionID,
			SavedToken:    res.SavedTokenID,
			MaskedCard:    res.MaskedCard,
			Captured:      res.TransactionStatus != "authorize",
		}, nil
	default:
		return nil, g.failure(res.StatusCode, res.StatusMessage, nil)
	}
}

func (g *MidtransGateway) Capture(ctx context.Context, transactionID string, amount float64) error {
	_, midErr := g.client.CaptureTransaction(&coreapi.CaptureReq{
		TransactionID: transactionID,
		GrossAmt:      amount,
	})
	if midErr != nil {
		return g.wrap(midErr)
	}
	return nil
}

func (g *MidtransGateway) Release(ctx context.Context, transactionID string) error {
	_, midErr := g.client.CancelTransaction(transactionID)
	if midErr != nil {
		return g.wrap(midErr)
	}
	return nil
}

// Void is the same cancel call; the distinction only matters upstream in
// the order's payment_status.
func (g *MidtransGateway) Void(ctx context.Context, transactionID string) error {
	return g.Release(ctx, transactionID)
}

func (g *MidtransGateway) Tokenize(ctx context.Context, card Card) (*TokenizeResult, error) {
	res, midErr := g.client.RegisterCard(card.Number, card.ExpMonth, card.ExpYear, g.client.ClientKey)
	if midErr != nil {
		return nil, g.wrap(midErr)
	}

	last4 := card.Number
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	return &TokenizeResult{
		Token:    res.SavedTokenID,
		Last4:    last4,
		ExpMonth: card.ExpMonth,
		ExpYear:  card.ExpYear,
	}, nil
}

func (g *MidtransGateway) wrap(err *midtrans.Error) *ProviderError {
	return &ProviderError{
		Provider: g.Name(),
		Code:     fmt.Sprintf("%d", err.GetStatusCode()),
		Message:  err.GetMessage(),
		Err:      err,
	}
}

func (g *MidtransGateway) failure(code, message string, err error) *ProviderError {
	return &ProviderError{Provider: g.Name(), Code: code, Message: message, Err: err}
}
