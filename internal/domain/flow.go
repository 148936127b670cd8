package domain

// EventKind — вид события от транспорта. Текстовый ввод приходит одним видом
// EventText: таблица переходов сама решает, дата это, имя или телефон, по
// текущему шагу сессии.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventProvider EventKind = "provider"
	EventTime     EventKind = "time"
	EventText     EventKind = "text"
	EventCancel   EventKind = "cancel"
	EventList     EventKind = "list"
	EventDelete   EventKind = "delete"
)

// Event — одно событие сессии.
type Event struct {
	Kind  EventKind
	Value string // код специалиста, слот или свободный текст
	ID    int64  // id записи для EventDelete
}

// Button — вариант выбора, который транспорт отрисует кнопкой.
type Button struct {
	Label string
	Data  string
}

// Message — ответ автомата: текст плюс необязательные ряды кнопок.
type Message struct {
	Text    string
	Buttons [][]Button
}

// Callback data префиксы, общие для автомата и транспорта.
const (
	CallbackBegin          = "begin"
	CallbackCancel         = "cancel"
	CallbackProviderPrefix = "provider:"
	CallbackTimePrefix     = "time:"
	CallbackDeletePrefix   = "del:"
)
