package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zapisnik/internal/models"

	"github.com/mattn/go-sqlite3"
)

// FreeSlots возвращает слоты каталога за вычетом уже занятых на эту дату,
// в порядке каталога.
func (db *DB) FreeSlots(ctx context.Context, provider, date string) ([]string, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT time FROM appointments WHERE provider = ? AND date = ?`, provider, date)
	if err != nil {
		return nil, fmt.Errorf("%w: free slots query: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	busy := make(map[string]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("%w: free slots scan: %v", ErrUnavailable, err)
		}
		busy[t] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: free slots rows: %v", ErrUnavailable, err)
	}

	var free []string
	for _, t := range db.catalog.SlotTimes(provider, date) {
		if !busy[t] {
			free = append(free, t)
		}
	}
	return free, nil
}

// CreateAppointment атомарно вставляет запись. Уникальность тройки
// (provider, date, time) обеспечивает индекс idx_slot: при гонке ровно одна
// вставка проходит, остальные получают ErrSlotTaken. Никакой предварительной
// проверки check-then-insert здесь нет намеренно.
func (db *DB) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	now := time.Now()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO appointments (chat_id, provider, date, time, name, phone, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ChatID, a.Provider, a.Date, a.Time, a.Name, a.Phone, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrSlotTaken
		}
		return fmt.Errorf("%w: create appointment: %v", ErrUnavailable, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: last insert id: %v", ErrUnavailable, err)
	}
	a.ID = id
	a.CreatedAt = now
	return nil
}

// ListByChat возвращает записи чата, упорядоченные по дате (месяц, день —
// дата хранится как ДД.ММ), затем по времени.
func (db *DB) ListByChat(ctx context.Context, chatID int64) ([]models.Appointment, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, chat_id, provider, date, time, name, phone, created_at
         FROM appointments WHERE chat_id = ?
         ORDER BY substr(date, 4, 2), substr(date, 1, 2), time`, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: list by chat: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListAll возвращает все записи в том же порядке, что и ListByChat.
func (db *DB) ListAll(ctx context.Context) ([]models.Appointment, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, chat_id, provider, date, time, name, phone, created_at
         FROM appointments
         ORDER BY substr(date, 4, 2), substr(date, 1, 2), time`)
	if err != nil {
		return nil, fmt.Errorf("%w: list all: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListOnDate возвращает записи на конкретную дату (для напоминаний).
func (db *DB) ListOnDate(ctx context.Context, date string) ([]models.Appointment, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, chat_id, provider, date, time, name, phone, created_at
         FROM appointments WHERE date = ? ORDER BY time`, date)
	if err != nil {
		return nil, fmt.Errorf("%w: list on date: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// DeleteAppointment удаляет запись, только если она принадлежит чату.
// Идемпотентна: повторное удаление возвращает false без ошибки.
func (db *DB) DeleteAppointment(ctx context.Context, id, chatID int64) (bool, error) {
	result, err := db.db.ExecContext(ctx,
		`DELETE FROM appointments WHERE id = ? AND chat_id = ?`, id, chatID)
	if err != nil {
		return false, fmt.Errorf("%w: delete appointment: %v", ErrUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", ErrUnavailable, err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanAppointments(rows rowScanner) ([]models.Appointment, error) {
	var res []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.ChatID, &a.Provider, &a.Date, &a.Time, &a.Name, &a.Phone, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan appointment: %v", ErrUnavailable, err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrUnavailable, err)
	}
	return res, nil
}
