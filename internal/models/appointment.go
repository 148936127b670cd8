package models

import "time"

// Appointment — подтверждённая запись к специалисту. После создания не
// изменяется, удаляется только владельцем чата.
type Appointment struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Provider  string    `json:"provider"`
	Date      string    `json:"date"` // ДД.ММ
	Time      string    `json:"time"` // ЧЧ:ММ
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider — специалист, к которому можно записаться.
type Provider struct {
	Code  string `yaml:"code" json:"code"`
	Label string `yaml:"label" json:"label"`
}
