package gateway

import "strconv"

// コールバック（IPN）のresult_code。0のみ成功。
const ResultCodeSuccess = 0

type CallbackPayload struct {
	PartnerCode   string `json:"partner_code"`
	OrderNumber   string `json:"order_id"`
	RequestID     string `json:"request_id"` // CreateIntentで渡したPaymentRequestID
	Amount        int64  `json:"amount"`
	ResultCode    int    `json:"result_code"`
	Message       string `json:"message"`
	TransactionID string `json:"trans_id"`
	Signature     string `json:"signature"`
}

func (p CallbackPayload) signedFields() map[string]string {
	return map[string]string{
		"partner_code": p.PartnerCode,
		"order_id":     p.OrderNumber,
		"request_id":   p.RequestID,
		"amount":       strconv.FormatInt(p.Amount, 10),
		"result_code":  strconv.Itoa(p.ResultCode),
		"trans_id":     p.TransactionID,
	}
}

func (p CallbackPayload) VerifyWith(secret string) bool {
	return VerifySignature(secret, p.signedFields(), p.Signature)
}

// テスト・シミュレータ用
func (p *CallbackPayload) SignWith(secret string) {
	p.Signature = Sign(secret, p.signedFields())
}
