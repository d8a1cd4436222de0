package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	GoEnv       string // dev/prod
	ServiceName string // イベントのproducer名

	//予約
	ReservationTTL  time.Duration // 在庫ホールドの有効期間
	CleanupInterval time.Duration // 掃除ジョブの周期
	CleanupBatch    int           // 1tickで処理する最大件数

	//決済ゲートウェイ
	GatewayEndpoint    string        // インテント作成URL
	GatewayPartnerCode string        // 加盟店コード
	GatewaySecret      string        // 署名シークレット
	GatewayTimeout     time.Duration // 外部呼び出しのタイムアウト

	//任意（空なら機能を落として動く）
	RedisAddr    string   // コールバックdedupキャッシュ
	KafkaBrokers []string // 通知イベント
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:        os.Getenv("PORT"),
		GoEnv:       os.Getenv("GO_ENV"),
		ServiceName: getenv("SERVICE_NAME", "order-api"),

		ReservationTTL:  time.Duration(atoiDefault("RESERVATION_TTL_MIN", 20)) * time.Minute,
		CleanupInterval: time.Duration(atoiDefault("CLEANUP_INTERVAL_SEC", 60)) * time.Second,
		CleanupBatch:    atoiDefault("CLEANUP_BATCH_SIZE", 100),

		GatewayEndpoint:    os.Getenv("GATEWAY_ENDPOINT"),
		GatewayPartnerCode: os.Getenv("GATEWAY_PARTNER_CODE"),
		GatewaySecret:      os.Getenv("GATEWAY_SECRET"),
		GatewayTimeout:     time.Duration(atoiDefault("GATEWAY_TIMEOUT_SEC", 10)) * time.Second,

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.GatewayEndpoint == "" {
		return Config{}, fmt.Errorf("GATEWAY_ENDPOINT is required")
	}
	if cfg.GatewayPartnerCode == "" {
		return Config{}, fmt.Errorf("GATEWAY_PARTNER_CODE is required")
	}
	if cfg.GatewaySecret == "" {
		return Config{}, fmt.Errorf("GATEWAY_SECRET is required")
	}
	if cfg.ReservationTTL <= 0 {
		return Config{}, fmt.Errorf("RESERVATION_TTL_MIN must be positive")
	}
	if cfg.CleanupInterval <= 0 {
		return Config{}, fmt.Errorf("CLEANUP_INTERVAL_SEC must be positive")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
