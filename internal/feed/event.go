package feed

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Типы событий ленты изменений.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Event описывает одно изменение строки, доставляемое подписчикам ленты.
// Origin содержит идентификатор хаба-отправителя: события, пришедшие по
// redis с нашим же Origin, не доставляются повторно.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Origin    uuid.UUID      `json:"origin"`
	Table     string         `json:"table"`
	Type      string         `json:"type"`
	Record    map[string]any `json:"record,omitempty"`
	OldRecord map[string]any `json:"old_record,omitempty"`
	At        time.Time      `json:"at"`
}

// NewEvent собирает событие изменения строки.
func NewEvent(table, eventType string, record map[string]any) Event {
	return Event{
		ID:     uuid.New(),
		Table:  table,
		Type:   eventType,
		Record: record,
		At:     time.Now(),
	}
}

// Subscription описывает подписку клиента: таблица и необязательный фильтр
// вида "column=eq.value".
type Subscription struct {
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// Matches проверяет, подходит ли событие под подписку.
func (s Subscription) Matches(ev Event) bool {
	if s.Table != ev.Table {
		return false
	}
	if s.Filter == "" {
		return true
	}

	column, want, ok := parseFilter(s.Filter)
	if !ok {
		return false
	}

	record := ev.Record
	if record == nil {
		record = ev.OldRecord
	}
	if record == nil {
		return false
	}

	got, ok := record[column]
	if !ok {
		return false
	}

	return stringify(got) == want
}

// parseFilter разбирает фильтр "column=eq.value".
func parseFilter(filter string) (column, value string, ok bool) {
	column, rest, found := strings.Cut(filter, "=")
	if !found {
		return "", "", false
	}
	value, found = strings.CutPrefix(rest, "eq.")
	if !found {
		return "", "", false
	}
	return column, value, true
}

// stringify приводит значение поля записи к строке для сравнения с фильтром.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case uuid.UUID:
		return t.String()
	case float64:
		// json.Unmarshal отдаёт числа как float64
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
