package payos

import (
	"encoding/json"
	"fmt"
)

type WebhookData struct {
	OrderCode              int64  `json:"orderCode"`
	Amount                 int64  `json:"amount"`
	Description            string `json:"description"`
	AccountNumber          string `json:"accountNumber"`
	Reference              string `json:"reference"`
	TransactionDateTime    string `json:"transactionDateTime"`
	Currency               string `json:"currency"`
	PaymentLinkID          string `json:"paymentLinkId"`
	Code                   string `json:"code"`
	Desc                   string `json:"desc"`
	CounterAccountBankID   string `json:"counterAccountBankId"`
	CounterAccountBankName string `json:"counterAccountBankName"`
	CounterAccountName     string `json:"counterAccountName"`
	CounterAccountNumber   string `json:"counterAccountNumber"`
	VirtualAccountName     string `json:"virtualAccountName"`
	VirtualAccountNumber   string `json:"virtualAccountNumber"`
}

type webhookBody struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// VerifyWebhook contrôle la signature d'un webhook payOS et retourne son contenu.
// Le statut annoncé n'est qu'indicatif : l'appelant doit interroger l'API.
func VerifyWebhook(checksumKey string, body []byte) (*WebhookData, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("payos: decode webhook: %w", err)
	}
	if len(wb.Data) == 0 || string(wb.Data) == "null" {
		return nil, fmt.Errorf("payos: webhook without data")
	}
	if err := VerifyData(checksumKey, wb.Data, wb.Signature); err != nil {
		return nil, err
	}
	var data WebhookData
	if err := json.Unmarshal(wb.Data, &data); err != nil {
		return nil, fmt.Errorf("payos: decode webhook data: %w", err)
	}
	return &data, nil
}
