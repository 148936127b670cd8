package models

// Шаги диалога записи. Хранятся в UserState.CurrentStep.
const (
	StateIdle           = "idle"
	StateSelectProvider = "select_provider"
	StateEnterDate      = "enter_date"
	StateSelectTime     = "select_time"
	StateEnterName      = "enter_name"
	StateEnterPhone     = "enter_phone"
)

// Ключи черновика записи в UserState.TempData.
const (
	DraftProvider = "provider"
	DraftDate     = "date"
	DraftTime     = "time"
	DraftName     = "name"
	DraftSlots    = "slots"
)

const (
	// DefaultRedisTTL время жизни состояния пользователя в Redis
	DefaultRedisTTL = 24 * 60 * 60 // 24 часа в секундах

	// ReminderHour час, в который отправляются напоминания
	ReminderHour = 9

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// DefaultMaxBookingDays максимальный горизонт записи
	DefaultMaxBookingDays = 365
)
