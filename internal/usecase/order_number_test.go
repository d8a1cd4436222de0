package usecase_test

import (
	"strings"
	"testing"
	"time"

	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderNumber_Format(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	n := usecase.GenerateOrderNumber(now)
	assert.True(t, strings.HasPrefix(n, "ORD-20260301-"), "got %q", n)
	// ORD- + 8桁日付 + - + 10文字サフィックス
	assert.Len(t, n, 23)
	assert.Equal(t, strings.ToUpper(n), n)
}

func TestGenerateOrderNumber_Varies(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := usecase.GenerateOrderNumber(now)
		assert.False(t, seen[n], "duplicate %q", n)
		seen[n] = true
	}
}
