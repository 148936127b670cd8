package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"zapisnik/internal/database"
	"zapisnik/internal/domain"
	"zapisnik/internal/events"
	"zapisnik/internal/models"

	"github.com/rs/zerolog"
)

// Ошибки валидации даты, локальные для шага ввода.
var (
	ErrBadDateFormat = errors.New("date must match DD.MM")
	ErrNoSuchDate    = errors.New("no such calendar date")
)

// storeTimeout ограничивает каждое обращение к хранилищу.
const storeTimeout = 5 * time.Second

// pastGraceDays — порог правила вывода года: дата ДД.ММ, ушедшая в прошлое
// больше чем на полгода, трактуется как дата следующего года (декабрьская
// запись на январь). Меньший сдвиг считается прошедшей датой.
const pastGraceDays = 183

type AppointmentService struct {
	repo           domain.Repository
	eventBus       domain.EventPublisher
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewAppointmentService(repo domain.Repository, eventBus domain.EventPublisher, maxBookingDays int, logger *zerolog.Logger) *AppointmentService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &AppointmentService{
		repo:           repo,
		eventBus:       eventBus,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

var dateRe = regexp.MustCompile(`^(\d{2})\.(\d{2})$`)

// ResolveDate разбирает строку ДД.ММ и выводит год. Сначала дата берется в
// текущем году; если так она оказывается в прошлом больше чем на
// pastGraceDays, подразумевается следующий год. После этого прошедшая дата
// отклоняется как прошедшая, слишком далекая — как превышающая горизонт.
func (s *AppointmentService) ResolveDate(input string, now time.Time) (time.Time, error) {
	m := dateRe.FindStringSubmatch(input)
	if m == nil {
		return time.Time{}, ErrBadDateFormat
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])

	date := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
	if date.Day() != day || date.Month() != time.Month(month) {
		// time.Date нормализует 31.02 в марте — значит, такой даты нет
		return time.Time{}, ErrNoSuchDate
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if date.Before(today) && today.Sub(date) > pastGraceDays*24*time.Hour {
		date = date.AddDate(1, 0, 0)
	}

	if date.Before(today) {
		return time.Time{}, database.ErrPastDate
	}

	if date.After(today.AddDate(0, 0, s.maxBookingDays)) {
		return time.Time{}, database.ErrDateTooFar
	}

	return date, nil
}

func (s *AppointmentService) FreeSlots(ctx context.Context, provider, date string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.repo.FreeSlots(ctx, provider, date)
}

// Create фиксирует запись. Конфликт слота возвращается как
// database.ErrSlotTaken — это ожидаемый исход гонки, а не отказ.
func (s *AppointmentService) Create(ctx context.Context, a *models.Appointment) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.repo.CreateAppointment(ctx, a); err != nil {
		return err
	}

	s.publishEvent(events.EventAppointmentCreated, a)
	return nil
}

func (s *AppointmentService) ListByChat(ctx context.Context, chatID int64) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.repo.ListByChat(ctx, chatID)
}

func (s *AppointmentService) ListAll(ctx context.Context) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.repo.ListAll(ctx)
}

func (s *AppointmentService) ListOnDate(ctx context.Context, date string) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.repo.ListOnDate(ctx, date)
}

func (s *AppointmentService) Delete(ctx context.Context, id, chatID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	removed, err := s.repo.DeleteAppointment(ctx, id, chatID)
	if err != nil {
		return false, err
	}

	if removed {
		s.publishEvent(events.EventAppointmentCancelled, &models.Appointment{ID: id, ChatID: chatID})
	}
	return removed, nil
}

func (s *AppointmentService) publishEvent(eventType string, a *models.Appointment) {
	if s.eventBus == nil {
		return
	}

	payload := events.AppointmentEventPayload{
		AppointmentID: a.ID,
		ChatID:        a.ChatID,
		Provider:      a.Provider,
		Date:          a.Date,
		Time:          a.Time,
		Name:          a.Name,
		Phone:         a.Phone,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("appointment_id", a.ID).Msg("publish event error")
	}
}
