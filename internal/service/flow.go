package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"zapisnik/internal/database"
	"zapisnik/internal/domain"
	"zapisnik/internal/models"

	"github.com/rs/zerolog"
)

var phoneRe = regexp.MustCompile(`^\+?\d{10,15}$`)

// Flow — конечный автомат записи. Один экземпляр обслуживает все сессии:
// черновик и текущий шаг каждой сессии живут в StateManager, сам Flow
// состояния не держит. Переходы описаны явной таблицей по паре
// (текущий шаг, вид события).
type Flow struct {
	appointments domain.Appointments
	states       domain.StateManager
	providers    []models.Provider
	logger       *zerolog.Logger
	now          func() time.Time

	transitions map[transitionKey]transitionFunc
}

type transitionKey struct {
	step string
	kind domain.EventKind
}

type transitionFunc func(ctx context.Context, chatID int64, state *models.UserState, ev domain.Event) ([]domain.Message, error)

func NewFlow(appointments domain.Appointments, states domain.StateManager, providers []models.Provider, logger *zerolog.Logger) *Flow {
	f := &Flow{
		appointments: appointments,
		states:       states,
		providers:    providers,
		logger:       logger,
		now:          time.Now,
	}

	f.transitions = map[transitionKey]transitionFunc{
		{models.StateSelectProvider, domain.EventProvider}: f.selectProvider,
		{models.StateEnterDate, domain.EventText}:          f.submitDate,
		{models.StateSelectTime, domain.EventTime}:         f.selectTime,
		{models.StateEnterName, domain.EventText}:          f.submitName,
		{models.StateEnterPhone, domain.EventText}:         f.submitPhone,
	}

	return f
}

// Handle обрабатывает одно событие сессии целиком. События start, cancel,
// list и delete действуют из любого шага; остальные ищутся в таблице
// переходов, и событие, не подходящее текущему шагу, не двигает автомат —
// пользователю повторяется подсказка шага.
func (f *Flow) Handle(ctx context.Context, chatID int64, ev domain.Event) ([]domain.Message, error) {
	switch ev.Kind {
	case domain.EventStart:
		return f.start(ctx, chatID)
	case domain.EventCancel:
		return f.cancel(ctx, chatID)
	case domain.EventList:
		return f.listMine(ctx, chatID)
	case domain.EventDelete:
		return f.deleteByID(ctx, chatID, ev.ID)
	}

	state, err := f.states.GetUserState(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: get session state: %v", database.ErrUnavailable, err)
	}

	step := models.StateIdle
	if state != nil && state.CurrentStep != "" {
		step = state.CurrentStep
	}

	fn, ok := f.transitions[transitionKey{step, ev.Kind}]
	if !ok {
		return f.rePrompt(step, state), nil
	}

	if state != nil && state.TempData == nil {
		state.TempData = map[string]interface{}{}
	}

	return fn(ctx, chatID, state, ev)
}

// start сбрасывает прежний черновик (повторный start посреди диалога
// допустим) и начинает выбор специалиста.
func (f *Flow) start(ctx context.Context, chatID int64) ([]domain.Message, error) {
	if err := f.states.SetUserState(ctx, chatID, models.StateSelectProvider, map[string]interface{}{}); err != nil {
		return nil, fmt.Errorf("%w: reset session state: %v", database.ErrUnavailable, err)
	}

	return []domain.Message{f.providerPrompt()}, nil
}

func (f *Flow) cancel(ctx context.Context, chatID int64) ([]domain.Message, error) {
	if err := f.states.ClearUserState(ctx, chatID); err != nil {
		return nil, fmt.Errorf("%w: clear session state: %v", database.ErrUnavailable, err)
	}

	return []domain.Message{{Text: "Запись отменена. Нажмите /start, чтобы начать заново."}}, nil
}

func (f *Flow) selectProvider(ctx context.Context, chatID int64, state *models.UserState, ev domain.Event) ([]domain.Message, error) {
	provider, ok := f.providerByCode(ev.Value)
	if !ok {
		return []domain.Message{f.providerPrompt()}, nil
	}

	data := map[string]interface{}{models.DraftProvider: provider.Code}
	if err := f.states.SetUserState(ctx, chatID, models.StateEnterDate, data); err != nil {
		return nil, fmt.Errorf("%w: save session state: %v", database.ErrUnavailable, err)
	}

	return []domain.Message{{
		Text: fmt.Sprintf("👨‍⚕️ Вы выбрали: %s\n\nВведите дату (например, 10.06):", provider.Label),
	}}, nil
}

func (f *Flow) submitDate(ctx context.Context, chatID int64, state *models.UserState, ev domain.Event) ([]domain.Message, error) {
	input := strings.TrimSpace(ev.Value)

	if _, err := f.appointments.ResolveDate(input, f.now()); err != nil {
		// Ошибка ввода разрешается здесь же, шаг не меняется
		return []domain.Message{{Text: dateErrorMessage(err)}}, nil
	}

	provider := state.GetString(models.DraftProvider)
	free, err := f.appointments.FreeSlots(ctx, provider, input)
	if err != nil {
		return nil, err
	}

	if len(free) == 0 {
		return []domain.Message{{Text: "На эту дату всё занято. Введите другую дату."}}, nil
	}

	data := state.TempData
	data[models.DraftDate] = input
	data[models.DraftSlots] = free
	if err := f.states.SetUserState(ctx, chatID, models.StateSelectTime, data); err != nil {
		return nil, fmt.Errorf("%w: save session state: %v", database.ErrUnavailable, err)
	}

	return []domain.Message{slotPrompt("Выберите время:", free)}, nil
}

func (f *Flow) selectTime(ctx context.Context, chatID int64, state *models.UserState, ev domain.Event) ([]domain.Message, error) {
	offered := state.GetStrings(models.DraftSlots)
	if !containsSlot(offered, ev.Value) {
		// Предложен только последний список свободных слотов
		return []domain.Message{slotPrompt("Пожалуйста, выберите время кнопкой:", offered)}, nil
	}

	data := state.TempData
	data[models.DraftTime] = ev.Value
	if err := f.states.SetUserState(ctx, chatID, models.StateEnterName, data); err != nil {
		return nil, fmt.Errorf("%w: save session state: %v", database.ErrUnavailable, err)
	}

	return []domain.Message{{
		Text: fmt.Sprintf("⏰ Вы выбрали время: %s\n\nВведите ваше имя:", ev.Value),
	}}, nil
}

func (f *Flow) submitName(ctx context.Context, chatID int64, state *models.UserState, ev domain.Event) ([]domain.Message, error) {
	name := strings.TrimSpace(ev.Value)
	if name == "" {
		return []domain.Message{{Text: "Имя не может быть пустым. Введите ваше имя:"}}, nil
	}

	data := state.TempData
	data[models.DraftName] = name
	if err := f.states.SetUserState(ctx, chatID, models.StateEnterPhone, data); err != nil {
		return nil, fmt.Errorf("%w: save session state: %v", database.ErrUnavailable, err)
	}

	return []domain.Message{{Text: "Введите телефон (можно с +):"}}, nil
}

func (f *Flow) submitPhone(ctx context.Context, chatID int64, state *models.UserState, ev domain.Event) ([]domain.Message, error) {
	phone := strings.TrimSpace(ev.Value)
	if !phoneRe.MatchString(phone) {
		return []domain.Message{{Text: "Неправильный номер, попробуйте ещё раз:"}}, nil
	}

	appointment := &models.Appointment{
		ChatID:   chatID,
		Provider: state.GetString(models.DraftProvider),
		Date:     state.GetString(models.DraftDate),
		Time:     state.GetString(models.DraftTime),
		Name:     state.GetString(models.DraftName),
		Phone:    phone,
	}

	err := f.appointments.Create(ctx, appointment)
	if errors.Is(err, database.ErrSlotTaken) {
		return f.rerouteAfterConflict(ctx, chatID, state)
	}
	if err != nil {
		// Отказ хранилища: состояние не меняем, пользователь может повторить
		return nil, err
	}

	// Черновик выполнил свое, сессия готова к новой записи
	if err := f.states.ClearUserState(ctx, chatID); err != nil {
		f.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to clear session state after commit")
	}

	label := appointment.Provider
	if p, ok := f.providerByCode(appointment.Provider); ok {
		label = p.Label
	}

	text := fmt.Sprintf(
		"✅ Запись подтверждена! В ближайшее время мы свяжемся с вами для уточнения деталей!\n\n"+
			"%s\n📅 Дата: %s\n⏰ Время: %s\n🙍 Имя: %s\n📞 Телефон: %s",
		label, appointment.Date, appointment.Time, appointment.Name, appointment.Phone)

	return []domain.Message{{
		Text: text,
		Buttons: [][]domain.Button{
			{{Label: "📝 Записаться снова", Data: domain.CallbackBegin}},
		},
	}}, nil
}

// rerouteAfterConflict обрабатывает проигрыш гонки за слот: список слотов
// пересчитывается, сессия возвращается к выбору времени либо, если дата
// закончилась, к вводу новой даты.
func (f *Flow) rerouteAfterConflict(ctx context.Context, chatID int64, state *models.UserState) ([]domain.Message, error) {
	provider := state.GetString(models.DraftProvider)
	date := state.GetString(models.DraftDate)

	free, err := f.appointments.FreeSlots(ctx, provider, date)
	if err != nil {
		return nil, err
	}

	data := state.TempData
	if len(free) == 0 {
		delete(data, models.DraftDate)
		delete(data, models.DraftSlots)
		if err := f.states.SetUserState(ctx, chatID, models.StateEnterDate, data); err != nil {
			return nil, fmt.Errorf("%w: save session state: %v", database.ErrUnavailable, err)
		}
		return []domain.Message{{Text: "Это время только что заняли. На эту дату больше нет свободных слотов. Введите новую дату:"}}, nil
	}

	data[models.DraftSlots] = free
	if err := f.states.SetUserState(ctx, chatID, models.StateSelectTime, data); err != nil {
		return nil, fmt.Errorf("%w: save session state: %v", database.ErrUnavailable, err)
	}

	return []domain.Message{
		{Text: "Это время только что заняли. Выберите другое:"},
		slotPrompt("Свободные варианты:", free),
	}, nil
}

func (f *Flow) listMine(ctx context.Context, chatID int64) ([]domain.Message, error) {
	list, err := f.appointments.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if len(list) == 0 {
		return []domain.Message{{Text: "У вас нет записей."}}, nil
	}

	msgs := make([]domain.Message, 0, len(list))
	for _, a := range list {
		label := a.Provider
		if p, ok := f.providerByCode(a.Provider); ok {
			label = p.Label
		}
		msgs = append(msgs, domain.Message{
			Text: fmt.Sprintf("%s\n📅 %s  ⏰ %s", label, a.Date, a.Time),
			Buttons: [][]domain.Button{
				{{Label: "❌ Отменить", Data: fmt.Sprintf("%s%d", domain.CallbackDeletePrefix, a.ID)}},
			},
		})
	}
	return msgs, nil
}

func (f *Flow) deleteByID(ctx context.Context, chatID, id int64) ([]domain.Message, error) {
	removed, err := f.appointments.Delete(ctx, id, chatID)
	if err != nil {
		return nil, err
	}

	if !removed {
		return []domain.Message{{Text: "Запись не найдена."}}, nil
	}
	return []domain.Message{{Text: "Запись удалена."}}, nil
}

// rePrompt возвращает подсказку текущего шага для события, не подходящего
// этому шагу.
func (f *Flow) rePrompt(step string, state *models.UserState) []domain.Message {
	switch step {
	case models.StateSelectProvider:
		return []domain.Message{f.providerPrompt()}
	case models.StateEnterDate:
		return []domain.Message{{Text: "Введите дату (например, 10.06):"}}
	case models.StateSelectTime:
		var offered []string
		if state != nil {
			offered = state.GetStrings(models.DraftSlots)
		}
		return []domain.Message{slotPrompt("Пожалуйста, выберите время кнопкой:", offered)}
	case models.StateEnterName:
		return []domain.Message{{Text: "Введите ваше имя:"}}
	case models.StateEnterPhone:
		return []domain.Message{{Text: "Введите телефон (можно с +):"}}
	default:
		return []domain.Message{{
			Text: "Здравствуйте! Нажмите «Записаться», чтобы выбрать специалиста.",
			Buttons: [][]domain.Button{
				{{Label: "📝 Записаться", Data: domain.CallbackBegin}},
			},
		}}
	}
}

func (f *Flow) providerPrompt() domain.Message {
	var rows [][]domain.Button
	var row []domain.Button
	for _, p := range f.providers {
		row = append(row, domain.Button{Label: p.Label, Data: domain.CallbackProviderPrefix + p.Code})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []domain.Button{{Label: "🔙 Отмена", Data: domain.CallbackCancel}})

	return domain.Message{Text: "Выберите специалиста:", Buttons: rows}
}

func slotPrompt(text string, slots []string) domain.Message {
	var rows [][]domain.Button
	for _, s := range slots {
		rows = append(rows, []domain.Button{{Label: s, Data: domain.CallbackTimePrefix + s}})
	}
	return domain.Message{Text: text, Buttons: rows}
}

func (f *Flow) providerByCode(code string) (models.Provider, bool) {
	for _, p := range f.providers {
		if p.Code == code {
			return p, true
		}
	}
	return models.Provider{}, false
}

func containsSlot(slots []string, s string) bool {
	for _, v := range slots {
		if v == s {
			return true
		}
	}
	return false
}

func dateErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrBadDateFormat):
		return "Формат должен быть 10.06"
	case errors.Is(err, ErrNoSuchDate):
		return "Такой даты нет, попробуйте ещё раз."
	case errors.Is(err, database.ErrPastDate):
		return "Прошедшая дата недоступна."
	case errors.Is(err, database.ErrDateTooFar):
		return "Так далеко запись не ведется, выберите более близкую дату."
	default:
		return "Не удалось разобрать дату, попробуйте ещё раз."
	}
}
