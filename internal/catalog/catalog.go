// Package catalog перечисляет слоты времени, доступные для записи.
package catalog

// DefaultSlotTimes — расписание приёма по умолчанию.
var DefaultSlotTimes = []string{"10:00", "11:00", "12:00", "14:00", "15:00", "16:00"}

// Catalog — статический справочник слотов. Один и тот же список для всех
// специалистов и дат.
type Catalog struct {
	times []string
}

// New создает каталог с заданным расписанием. Пустой список заменяется
// расписанием по умолчанию.
func New(times []string) *Catalog {
	if len(times) == 0 {
		times = DefaultSlotTimes
	}
	copied := make([]string, len(times))
	copy(copied, times)
	return &Catalog{times: copied}
}

// SlotTimes возвращает упорядоченный список всех возможных слотов для
// специалиста на дату. Детерминирован, без побочных эффектов.
func (c *Catalog) SlotTimes(provider, date string) []string {
	res := make([]string, len(c.times))
	copy(res, c.times)
	return res
}
