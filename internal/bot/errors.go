package bot

import (
	"errors"
	"strings"

	"zapisnik/internal/database"
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, database.ErrSlotTaken) {
		return "⚠️ Это время уже занято. Пожалуйста, выберите другое."
	}

	if errors.Is(err, database.ErrPastDate) {
		return "⚠️ Нельзя записаться на прошедшую дату."
	}

	if errors.Is(err, database.ErrDateTooFar) {
		return "⚠️ Так далеко запись не ведется. Пожалуйста, выберите более раннюю дату."
	}

	if errors.Is(err, database.ErrUnavailable) {
		return "⚠️ Сервис временно недоступен. Пожалуйста, попробуйте еще раз через минуту."
	}

	// Default error message
	msg := "❌ Произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте позже."
	if len(b.config.ManagersContacts) > 0 {
		msg += "\n\nСвязаться с нами: " + strings.Join(b.config.ManagersContacts, ", ")
	}
	return msg
}
