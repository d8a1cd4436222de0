package job

import (
	"context"
	"time"

	"app/internal/usecase"

	"github.com/rs/zerolog"
)

// 期限切れ予約の掃除。リクエスト処理とは独立した単一のバックグラウンドタスク。
// 実際の失効処理はInventoryUsecase.CleanupExpiredで、行ロックにより
// 手動実行や次のtickと重なっても安全。
type ReservationCleanupJob struct {
	inventory *usecase.InventoryUsecase
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

func NewReservationCleanupJob(inventory *usecase.InventoryUsecase, interval time.Duration, batchSize int, logger zerolog.Logger) *ReservationCleanupJob {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReservationCleanupJob{
		inventory: inventory,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run はctxがキャンセルされるまで回る。goroutineで起動する想定。
func (j *ReservationCleanupJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info().Dur("interval", j.interval).Msg("reservation cleanup job started")

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("reservation cleanup job stopped")
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *ReservationCleanupJob) tick(ctx context.Context) {
	//1回分はtickの周期内に収める
	tickCtx, cancel := context.WithTimeout(ctx, j.interval)
	defer cancel()

	n, err := j.inventory.CleanupExpired(tickCtx, j.batchSize)
	if err != nil {
		j.logger.Error().Err(err).Msg("reservation cleanup failed")
		return
	}
	if n > 0 {
		j.logger.Info().Int("expired", n).Msg("reservation cleanup tick")
	}
}
