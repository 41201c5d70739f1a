package backend

import "context"

// PaymentResult is the payment API acknowledgement for a confirmation.
type PaymentResult struct {
	Paid      bool   `json:"paid"`
	Reference string `json:"reference"`
}

// PaymentClient confirms payments with the payment API. The payable amount is
// passed through unchanged; the gateway never recomputes it here.
type PaymentClient struct {
	Client
}

// Confirm submits the final payable amount for an order.
func (c PaymentClient) Confirm(ctx context.Context, orderID string, amount int64) (PaymentResult, error) {
	var envelope struct {
		Data PaymentResult `json:"data"`
	}
	body := map[string]any{
		"orderId": orderID,
		"amount":  amount,
	}
	if err := c.postJSON(ctx, "/payments/confirm", body, &envelope); err != nil {
		return PaymentResult{}, err
	}
	return envelope.Data, nil
}
