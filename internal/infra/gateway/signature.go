package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Sign はkey=value&...を辞書順に並べたrawデータのHMAC-SHA256（hex）。
// ゲートウェイ側も同じ正規化で署名してくる想定。
func Sign(secret string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	raw := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret string, fields map[string]string, signature string) bool {
	want := Sign(secret, fields)
	return hmac.Equal([]byte(want), []byte(signature))
}
