package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"
)

func (b *Bot) handleExportCommand(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID

	if !b.isManager(update.Message.From.ID) {
		b.sendMessage(chatID, "Эта команда доступна только менеджерам.")
		return
	}

	path, err := b.exportToExcel(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Export to Excel failed")
		b.sendMessage(chatID, "❌ Не удалось сформировать выгрузку.")
		return
	}

	if _, err := b.tgService.SendDocument(chatID, path); err != nil {
		b.logger.Error().Err(err).Str("path", path).Msg("Failed to send export file")
		b.sendMessage(chatID, "❌ Не удалось отправить файл выгрузки.")
	}
}

// exportToExcel создает Excel файл со всеми записями
func (b *Bot) exportToExcel(ctx context.Context) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	list, err := b.appointments.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting appointments: %v", err)
	}

	// Создаем новый Excel файл
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Записи"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Специалист", "Дата", "Время", "Имя", "Телефон", "Создана"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "F1", headerStyle)

	for row, a := range list {
		label := a.Provider
		for _, p := range b.providers {
			if p.Code == a.Provider {
				label = p.Label
				break
			}
		}
		values := []interface{}{label, a.Date, a.Time, a.Name, a.Phone, a.CreatedAt.Format("02.01.2006 15:04")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "F", 20)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("appointments_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(b.config.Exports.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	b.logger.Info().Str("file_path", filePath).Int("rows", len(list)).Msg("Excel file created")
	return filePath, nil
}
