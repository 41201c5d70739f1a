package backend

import (
	"context"
	"fmt"
	"net/url"
)

// WalletClient reads wallet balances from the wallet API.
type WalletClient struct {
	Client
}

// Balance returns the current wallet balance for the user in minor units.
func (c WalletClient) Balance(ctx context.Context, userID string) (int64, error) {
	var envelope struct {
		Data struct {
			Balance int64 `json:"balance"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/wallets/%s/balance", url.PathEscape(userID))
	if err := c.getJSON(ctx, path, nil, &envelope); err != nil {
		return 0, err
	}
	return envelope.Data.Balance, nil
}
