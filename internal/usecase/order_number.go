package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 日付プレフィックス＋ランダムサフィックス。衝突はほぼ無いが、
// insert側はunique違反を引いたら再生成してリトライする。
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
