package domain

import (
	"context"
	"time"

	"zapisnik/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Repository — хранилище записей. Уникальность тройки (специалист, дата,
// время) обеспечивается на уровне хранилища, а не приложения.
type Repository interface {
	FreeSlots(ctx context.Context, provider, date string) ([]string, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	ListByChat(ctx context.Context, chatID int64) ([]models.Appointment, error)
	ListAll(ctx context.Context) ([]models.Appointment, error)
	ListOnDate(ctx context.Context, date string) ([]models.Appointment, error)
	DeleteAppointment(ctx context.Context, id, chatID int64) (bool, error)
}

// Appointments — сервисный слой над Repository с таймаутами, событиями и
// валидацией дат.
type Appointments interface {
	FreeSlots(ctx context.Context, provider, date string) ([]string, error)
	Create(ctx context.Context, a *models.Appointment) error
	ListByChat(ctx context.Context, chatID int64) ([]models.Appointment, error)
	ListAll(ctx context.Context) ([]models.Appointment, error)
	ListOnDate(ctx context.Context, date string) ([]models.Appointment, error)
	Delete(ctx context.Context, id, chatID int64) (bool, error)
	ResolveDate(input string, now time.Time) (time.Time, error)
}

type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type StateManager interface {
	GetUserState(ctx context.Context, userID int64) (*models.UserState, error)
	SetUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) error
	ClearUserState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BookingFlow — конечный автомат записи; один вызов Handle обрабатывает одно
// событие сессии целиком.
type BookingFlow interface {
	Handle(ctx context.Context, chatID int64, ev Event) ([]Message, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	SendDocument(chatID int64, path string) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
