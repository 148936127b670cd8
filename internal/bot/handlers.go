package bot

import (
	"context"
	"strconv"
	"strings"

	"zapisnik/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	if b.metrics != nil {
		b.metrics.MessagesProcessed.Inc()
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	if update.Message.IsCommand() {
		b.handleCommand(ctx, update)
		return
	}

	b.dispatch(ctx, chatID, domain.Event{Kind: domain.EventText, Value: text})
}

func (b *Bot) handleCommand(ctx context.Context, update tgbotapi.Update) {
	if b.metrics != nil {
		b.metrics.CommandsProcessed.Inc()
	}

	chatID := update.Message.Chat.ID

	switch update.Message.Command() {
	case "start":
		b.dispatch(ctx, chatID, domain.Event{Kind: domain.EventStart})
	case "my":
		b.dispatch(ctx, chatID, domain.Event{Kind: domain.EventList})
	case "cancel":
		b.dispatch(ctx, chatID, domain.Event{Kind: domain.EventCancel})
	case "export":
		b.handleExportCommand(ctx, update)
	default:
		b.sendMessage(chatID, "Неизвестная команда. Доступны /start, /my и /cancel.")
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	if b.metrics != nil {
		b.metrics.CallbacksProcessed.Inc()
	}

	query := update.CallbackQuery
	chatID := query.Message.Chat.ID
	data := query.Data

	// Телеграм ждет подтверждения каждого callback
	if err := b.tgService.AnswerCallback(query.ID, ""); err != nil {
		b.logger.Error().Err(err).Str("callback_id", query.ID).Msg("Failed to answer callback")
	}

	ev, ok := parseCallback(data)
	if !ok {
		b.logger.Warn().Str("data", data).Msg("Unknown callback data")
		return
	}

	b.dispatch(ctx, chatID, ev)
}

// parseCallback переводит callback-данные кнопки в событие автомата.
func parseCallback(data string) (domain.Event, bool) {
	switch {
	case data == domain.CallbackBegin:
		return domain.Event{Kind: domain.EventStart}, true
	case data == domain.CallbackCancel:
		return domain.Event{Kind: domain.EventCancel}, true
	case strings.HasPrefix(data, domain.CallbackProviderPrefix):
		return domain.Event{Kind: domain.EventProvider, Value: strings.TrimPrefix(data, domain.CallbackProviderPrefix)}, true
	case strings.HasPrefix(data, domain.CallbackTimePrefix):
		return domain.Event{Kind: domain.EventTime, Value: strings.TrimPrefix(data, domain.CallbackTimePrefix)}, true
	case strings.HasPrefix(data, domain.CallbackDeletePrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, domain.CallbackDeletePrefix), 10, 64)
		if err != nil {
			return domain.Event{}, false
		}
		return domain.Event{Kind: domain.EventDelete, ID: id}, true
	}
	return domain.Event{}, false
}

// dispatch прогоняет событие через автомат и отправляет ответные сообщения.
func (b *Bot) dispatch(ctx context.Context, chatID int64, ev domain.Event) {
	msgs, err := b.flow.Handle(ctx, chatID, ev)
	if err != nil {
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		b.logger.Error().Err(err).Int64("chat_id", chatID).Str("event", string(ev.Kind)).Msg("Flow handling error")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.deliver(chatID, msgs)
}

func (b *Bot) deliver(chatID int64, msgs []domain.Message) {
	for _, m := range msgs {
		var err error
		if len(m.Buttons) > 0 {
			_, err = b.tgService.SendWithInlineKeyboard(chatID, m.Text, buildKeyboard(m.Buttons))
		} else {
			_, err = b.tgService.SendMessage(chatID, m.Text)
		}
		if err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
		}
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func buildKeyboard(rows [][]domain.Button) tgbotapi.InlineKeyboardMarkup {
	var kbRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var kbRow []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		kbRows = append(kbRows, kbRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}
