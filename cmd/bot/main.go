package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"zapisnik/internal/api"
	"zapisnik/internal/bot"
	"zapisnik/internal/catalog"
	"zapisnik/internal/config"
	"zapisnik/internal/database"
	"zapisnik/internal/domain"
	"zapisnik/internal/events"
	"zapisnik/internal/logging"
	"zapisnik/internal/models"
	"zapisnik/internal/repository"
	"zapisnik/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, providers, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateService := initStateService(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func(c *redis.Client) { _ = repository.Close(c) })(redisClient)
	}

	eventBus := events.NewEventBus()

	appointmentService := service.NewAppointmentService(db, eventBus, cfg.Bot.MaxBookingDays, &logger)
	metrics := bot.NewMetrics()

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, appointmentService, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	return startBot(ctx, cfg, providers, stateService, appointmentService, eventBus, metrics, &logger)
}

func loadConfigAndLogger() (*config.Config, []models.Provider, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	providersPath := os.Getenv("PROVIDERS_PATH")
	if providersPath == "" {
		providersPath = "configs/providers.yaml"
	}
	providersData, err := os.ReadFile(providersPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", providersPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var providersConfig struct {
		Providers []models.Provider `yaml:"providers"`
	}
	if err := yaml.Unmarshal(providersData, &providersConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга providers.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateProviders(providersConfig.Providers); err != nil {
		logger.Error().Err(err).Msg("Providers validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, providersConfig.Providers, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	db.SetCatalog(catalog.New(cfg.Bot.SlotTimes))
	return db, nil
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient, time.Duration(models.DefaultRedisTTL)*time.Second)
	fallbackRepo := repository.NewMemoryStateRepository(time.Duration(models.DefaultRedisTTL) * time.Second)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	providers []models.Provider,
	stateService *service.StateService,
	appointmentService *service.AppointmentService,
	eventBus *events.EventBus,
	metrics *bot.Metrics,
	logger *zerolog.Logger,
) error {
	if cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Error().Msg("Задайте токен бота в config.yaml")
		return os.ErrInvalid
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}

	botWrapper := bot.NewBotWrapper(botAPI)
	tgService := service.NewTelegramService(botWrapper)

	subscribeAppointmentEvents(eventBus, tgService, cfg, providers, metrics, logger)

	flow := service.NewFlow(appointmentService, stateService, providers, logger)

	telegramBot, err := bot.NewBot(
		tgService, cfg, stateService, flow,
		appointmentService, providers, metrics, logger,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	logger.Info().Msg("Бот запущен...")
	telegramBot.StartReminders(ctx)
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

// subscribeAppointmentEvents вешает на шину уведомления менеджеров и метрики.
func subscribeAppointmentEvents(
	bus *events.EventBus,
	tgService domain.TelegramService,
	cfg *config.Config,
	providers []models.Provider,
	metrics *bot.Metrics,
	logger *zerolog.Logger,
) {
	if bus == nil {
		return
	}

	decode := func(ev *events.Event) (events.AppointmentEventPayload, error) {
		var payload events.AppointmentEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return payload, err
		}
		return payload, nil
	}

	providerLabel := func(code string) string {
		for _, p := range providers {
			if p.Code == code {
				return p.Label
			}
		}
		return code
	}

	bus.Subscribe(events.EventAppointmentCreated, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}

		if metrics != nil {
			metrics.AppointmentsCreated.WithLabelValues(payload.Provider).Inc()
		}

		text := fmt.Sprintf(
			"🆕 Новая запись\n%s\n📅 %s  ⏰ %s\n🙍 %s\n📞 %s",
			providerLabel(payload.Provider), payload.Date, payload.Time, payload.Name, payload.Phone)
		for _, managerID := range cfg.Managers {
			if _, err := tgService.SendMessage(managerID, text); err != nil {
				logger.Error().Err(err).Int64("manager_id", managerID).Msg("event bus: notify manager")
			}
		}
		return nil
	})

	bus.Subscribe(events.EventAppointmentCancelled, func(ev *events.Event) error {
		if metrics != nil {
			metrics.AppointmentsDeleted.Inc()
		}
		return nil
	})
}
