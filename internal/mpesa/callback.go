package mpesa

import (
	"encoding/json"
	"strconv"

	"github.com/Codingbot456/trendwear/internal/domain"
)

// CallbackEnvelope is the wire shape Daraja delivers to the callback
// URL: the result nested under Body.stkCallback.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback is the payment result. CallbackMetadata is present only on
// success (ResultCode 0) and carries the receipt, amount and payer
// details as a loosely-typed name/value list.
type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// MetadataItem is one name/value pair in the callback metadata. Values
// arrive as strings or JSON numbers depending on the field.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// Event flattens the callback into the domain event the reconciler
// applies. Metadata fields absent on failure callbacks stay zero-valued.
func (c StkCallback) Event() domain.PaymentCallback {
	ev := domain.PaymentCallback{
		MerchantRequestID: c.MerchantRequestID,
		CheckoutRequestID: c.CheckoutRequestID,
		ResultCode:        c.ResultCode,
		ResultDesc:        c.ResultDesc,
	}

	for _, item := range c.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			var amount float64
			if err := json.Unmarshal(item.Value, &amount); err == nil {
				ev.Amount = int64(amount)
			}
		case "MpesaReceiptNumber":
			ev.MpesaReceiptNumber = rawString(item.Value)
		case "TransactionDate":
			ev.TransactionDate = rawString(item.Value)
		case "PhoneNumber":
			ev.PhoneNumber = rawString(item.Value)
		}
	}

	return ev
}

// rawString renders a metadata value as a string whether it arrived as a
// JSON string or a bare number (TransactionDate and PhoneNumber are
// numbers on the wire).
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return string(raw)
}
