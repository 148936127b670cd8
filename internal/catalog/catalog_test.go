package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCatalog(t *testing.T) {
	c := New(nil)

	slots := c.SlotTimes("Therapist", "10.06")
	assert.Equal(t, []string{"10:00", "11:00", "12:00", "14:00", "15:00", "16:00"}, slots)

	// Одинаковый результат для любого специалиста и даты
	assert.Equal(t, slots, c.SlotTimes("Dentist", "11.06"))
	assert.Equal(t, slots, c.SlotTimes("Therapist", "10.06"))
}

func TestCustomCatalog(t *testing.T) {
	c := New([]string{"09:00", "09:30"})
	assert.Equal(t, []string{"09:00", "09:30"}, c.SlotTimes("Therapist", "10.06"))
}

func TestCatalogReturnsCopy(t *testing.T) {
	c := New(nil)

	slots := c.SlotTimes("Therapist", "10.06")
	slots[0] = "00:00"

	assert.Equal(t, "10:00", c.SlotTimes("Therapist", "10.06")[0])
}

func TestCatalogCopiesInput(t *testing.T) {
	src := []string{"09:00", "10:00"}
	c := New(src)
	src[0] = "mutated"

	assert.Equal(t, "09:00", c.SlotTimes("Therapist", "10.06")[0])
}
