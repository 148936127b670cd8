package bot

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"zapisnik/internal/config"
	"zapisnik/internal/database"
	"zapisnik/internal/domain"
	"zapisnik/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTelegramService struct {
	domain.TelegramService
	updatesChan chan tgbotapi.Update
	sent        []string
	keyboards   []tgbotapi.InlineKeyboardMarkup
	callbacks   []string
}

func (m *mockTelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegramService) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	m.sent = append(m.sent, text)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.sent = append(m.sent, text)
	m.keyboards = append(m.keyboards, keyboard)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) AnswerCallback(callbackID, text string) error {
	m.callbacks = append(m.callbacks, callbackID)
	return nil
}

func (m *mockTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "test_bot"}
}

func (m *mockTelegramService) StopReceivingUpdates() {}

type mockFlow struct {
	events []domain.Event
	msgs   []domain.Message
	err    error
}

func (m *mockFlow) Handle(ctx context.Context, chatID int64, ev domain.Event) ([]domain.Message, error) {
	m.events = append(m.events, ev)
	return m.msgs, m.err
}

type mockStateManager struct {
	domain.StateManager
	allowed bool
}

func (m *mockStateManager) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return m.allowed, nil
}

func newBotFixture(t *testing.T, flow *mockFlow) (*Bot, *mockTelegramService) {
	t.Helper()

	tg := &mockTelegramService{updatesChan: make(chan tgbotapi.Update, 1)}
	logger := zerolog.New(io.Discard)
	cfg := &config.Config{
		Bot: config.BotConfig{RateLimitMessages: 20, RateLimitWindow: 60},
	}

	b, err := NewBot(tg, cfg, &mockStateManager{allowed: true}, flow, nil, testProviders(), nil, &logger)
	require.NoError(t, err)
	return b, tg
}

func testProviders() []models.Provider {
	return []models.Provider{
		{Code: "Therapist", Label: "Терапевт"},
		{Code: "Dentist", Label: "Стоматолог"},
	}
}

func messageUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, UserName: "testuser"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
	if len(text) > 0 && text[0] == '/' {
		end := len(text)
		for i, r := range text {
			if r == ' ' {
				end = i
				break
			}
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestBotStartLoop(t *testing.T) {
	flow := &mockFlow{msgs: []domain.Message{{Text: "Выберите специалиста:"}}}
	b, tg := newBotFixture(t, flow)

	ctx, cancel := context.WithCancel(context.Background())
	go b.Start(ctx)

	tg.updatesChan <- messageUpdate(123, "/start")

	time.Sleep(100 * time.Millisecond)
	cancel()

	require.Len(t, flow.events, 1)
	assert.Equal(t, domain.EventStart, flow.events[0].Kind)
	require.NotEmpty(t, tg.sent)
	assert.Equal(t, "Выберите специалиста:", tg.sent[0])
}

func TestBotCommandRouting(t *testing.T) {
	cases := []struct {
		text string
		want domain.EventKind
	}{
		{"/start", domain.EventStart},
		{"/my", domain.EventList},
		{"/cancel", domain.EventCancel},
	}

	for _, tc := range cases {
		flow := &mockFlow{}
		b, _ := newBotFixture(t, flow)
		b.handleMessage(context.Background(), messageUpdate(1, tc.text))

		require.Len(t, flow.events, 1, "command %s", tc.text)
		assert.Equal(t, tc.want, flow.events[0].Kind, "command %s", tc.text)
	}
}

func TestBotPlainTextBecomesTextEvent(t *testing.T) {
	flow := &mockFlow{}
	b, _ := newBotFixture(t, flow)

	b.handleMessage(context.Background(), messageUpdate(1, "10.06"))

	require.Len(t, flow.events, 1)
	assert.Equal(t, domain.EventText, flow.events[0].Kind)
	assert.Equal(t, "10.06", flow.events[0].Value)
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data string
		want domain.Event
		ok   bool
	}{
		{"begin", domain.Event{Kind: domain.EventStart}, true},
		{"cancel", domain.Event{Kind: domain.EventCancel}, true},
		{"provider:Dentist", domain.Event{Kind: domain.EventProvider, Value: "Dentist"}, true},
		{"time:11:00", domain.Event{Kind: domain.EventTime, Value: "11:00"}, true},
		{"del:42", domain.Event{Kind: domain.EventDelete, ID: 42}, true},
		{"del:abc", domain.Event{}, false},
		{"garbage", domain.Event{}, false},
	}

	for _, tc := range cases {
		got, ok := parseCallback(tc.data)
		assert.Equal(t, tc.ok, ok, "data %q", tc.data)
		if tc.ok {
			assert.Equal(t, tc.want, got, "data %q", tc.data)
		}
	}
}

func TestBotCallbackDispatch(t *testing.T) {
	flow := &mockFlow{msgs: []domain.Message{{
		Text:    "Выберите время:",
		Buttons: [][]domain.Button{{{Label: "10:00", Data: "time:10:00"}}},
	}}}
	b, tg := newBotFixture(t, flow)

	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 5},
		Data:    "provider:Dentist",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}},
	}}
	b.handleCallbackQuery(context.Background(), update)

	assert.Equal(t, []string{"cb-1"}, tg.callbacks)
	require.Len(t, flow.events, 1)
	assert.Equal(t, domain.EventProvider, flow.events[0].Kind)

	require.Len(t, tg.keyboards, 1)
	require.Len(t, tg.keyboards[0].InlineKeyboard, 1)
	assert.Equal(t, "10:00", tg.keyboards[0].InlineKeyboard[0][0].Text)
}

func TestBotRateLimitBlocksUser(t *testing.T) {
	flow := &mockFlow{}
	tg := &mockTelegramService{updatesChan: make(chan tgbotapi.Update, 1)}
	logger := zerolog.New(io.Discard)
	cfg := &config.Config{
		Bot: config.BotConfig{RateLimitMessages: 1, RateLimitWindow: 60},
	}

	b, err := NewBot(tg, cfg, &mockStateManager{allowed: false}, flow, nil, nil, nil, &logger)
	require.NoError(t, err)

	b.processUpdate(context.Background(), messageUpdate(9, "10.06"))

	assert.Empty(t, flow.events)
	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], "слишком часто")
}

func TestBotManagerSkipsRateLimit(t *testing.T) {
	flow := &mockFlow{}
	tg := &mockTelegramService{updatesChan: make(chan tgbotapi.Update, 1)}
	logger := zerolog.New(io.Discard)
	cfg := &config.Config{
		Managers: []int64{9},
		Bot:      config.BotConfig{RateLimitMessages: 1, RateLimitWindow: 60},
	}

	b, err := NewBot(tg, cfg, &mockStateManager{allowed: false}, flow, nil, nil, nil, &logger)
	require.NoError(t, err)

	b.processUpdate(context.Background(), messageUpdate(9, "10.06"))

	assert.Len(t, flow.events, 1)
}

func TestBotFlowErrorMapsToUserMessage(t *testing.T) {
	flow := &mockFlow{err: database.ErrUnavailable}
	b, tg := newBotFixture(t, flow)

	b.handleMessage(context.Background(), messageUpdate(1, "10.06"))

	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], "временно недоступен")
}

func TestGetErrorMessage(t *testing.T) {
	b, _ := newBotFixture(t, &mockFlow{})

	assert.Contains(t, b.getErrorMessage(database.ErrSlotTaken), "уже занято")
	assert.Contains(t, b.getErrorMessage(database.ErrPastDate), "прошедшую дату")
	assert.Contains(t, b.getErrorMessage(database.ErrDateTooFar), "более раннюю")
	assert.Contains(t, b.getErrorMessage(database.ErrUnavailable), "временно недоступен")
	assert.Contains(t, b.getErrorMessage(errors.New("boom")), "Произошла ошибка")
	assert.Empty(t, b.getErrorMessage(nil))
}
