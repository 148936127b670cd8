package bot

import (
	"context"
	"fmt"
	"time"

	"zapisnik/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// StartReminders schedules daily reminders for next-day appointments.
func (b *Bot) StartReminders(ctx context.Context) {
	if b == nil || b.tgService == nil {
		return
	}

	go func() {
		// Parse reminder hour from config (default to 9 if invalid)
		hour := models.ReminderHour
		if b.config.Bot.ReminderTime != "" {
			var m int
			_, err := fmt.Sscanf(b.config.Bot.ReminderTime, "%d:%d", &hour, &m)
			if err != nil {
				b.logger.Error().Err(err).Str("reminder_time", b.config.Bot.ReminderTime).Msg("Invalid reminder time format")
				return
			}
		}

		// First wait until next reminder time local time, then tick every 24h.
		wait := timeUntilNextHour(hour)
		timer := time.NewTimer(wait)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowReminders(ctx)
				timer.Reset(24 * time.Hour)
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context) {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("02.01")

	list, err := b.appointments.ListOnDate(ctx, tomorrow)
	if err != nil {
		b.logger.Error().Err(err).Str("date", tomorrow).Msg("reminder: list appointments error")
		return
	}

	for _, a := range list {
		if a.ChatID == 0 {
			continue
		}

		msg := tgbotapi.NewMessage(a.ChatID, b.formatReminderMessage(a))
		if _, err := b.tgService.Send(msg); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", a.ChatID).Msg("reminder: send error")
		}
	}
}

func (b *Bot) formatReminderMessage(a models.Appointment) string {
	label := a.Provider
	for _, p := range b.providers {
		if p.Code == a.Provider {
			label = p.Label
			break
		}
	}
	return fmt.Sprintf("Напоминание: завтра, %s в %s, у вас запись к специалисту %s.", a.Date, a.Time, label)
}

func timeUntilNextHour(hour int) time.Duration {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
