package redisx

import "time"

const (
	// Webhook dedup: dedup:callback:{payment_request_id}:{transaction_id}
	KeyCallbackDedup = "dedup:callback:%s:%s"
)

var (
	// ゲートウェイのリトライ間隔より十分長く
	TTLCallbackDedup = 48 * time.Hour
)
