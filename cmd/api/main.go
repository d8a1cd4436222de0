package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/gateway"
	kafkax "app/internal/infra/kafka"
	"app/internal/infra/redisx"
	infraRepo "app/internal/infra/repository"
	"app/internal/job"
	"app/internal/notify"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは無くても動く（コンテナでは環境変数を直接渡す）
	_ = godotenv.Load("../.env")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
	if cfg.GoEnv == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.ProductVariant{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderAddress{},
		&model.OrderPayment{},
		&model.OrderStatusHistory{},
		&model.StockReservation{},
	); err != nil {
		logger.Fatal().Err(err).Msg("migrate failed")
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartProvider := infraRepo.NewCartProviderGorm(cartRepo)

	//任意の外部接続
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
	}

	var sink notify.Sink
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafkax.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		sink = notify.NewKafkaSink(producer, cfg.ServiceName)
	} else {
		sink = notify.NewLogSink(logger)
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	gw := gateway.NewClient(cfg.GatewayEndpoint, cfg.GatewayPartnerCode, cfg.GatewaySecret, cfg.GatewayTimeout)

	//Usecase生成
	inventoryUC := usecase.NewInventoryUsecase(txManager, cfg.ReservationTTL, clock, logger)
	paymentUC := usecase.NewPaymentUsecase(txManager, gw, inventoryUC, sink, clock, idGen, cfg.GatewaySecret, rdb, logger)
	orderUC := usecase.NewOrderUsecase(txManager, inventoryUC, paymentUC, cartProvider, sink, clock, logger)

	//Handler生成
	orderH := handler.NewOrderHandler(orderUC)
	webhookH := handler.NewWebhookHandler(paymentUC)
	inventoryH := handler.NewInventoryHandler(inventoryUC)

	//期限切れ予約の掃除ジョブ
	jobCtx, cancelJob := context.WithCancel(context.Background())
	cleanup := job.NewReservationCleanupJob(inventoryUC, cfg.CleanupInterval, cfg.CleanupBatch, logger)
	go cleanup.Run(jobCtx)

	//Server起動
	e := server.New(orderH, webhookH, inventoryH)

	go func() {
		if err := server.Start(e, ":"+cfg.Port); err != nil {
			logger.Info().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cancelJob()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx, e); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}
