package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxCategoryLength    = 50
	MaxContactLength     = 200
	MaxBioLength         = 300
	MinMessageLength     = 1
	MaxMessageLength     = 5000
	MaxReviewTextLength  = 2000
	MaxAmount            = 100000000.0 // 100 миллионов
)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateTitle проверяет заголовок объявления: обязателен и ограничен по длине.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("заголовок не может быть пустым")
	}
	return ValidateLength("заголовок", strings.TrimSpace(title), 0, MaxTitleLength)
}

// ParseAmount разбирает цену/бюджет из строки формы.
// Пустая строка допустима и означает «не указано» (nil).
// Непустая строка обязана быть числом, иначе ошибка валидации до любой записи.
func ParseAmount(raw string) (*float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, fmt.Errorf("сумма должна быть числом")
	}
	if value < 0 {
		return nil, fmt.Errorf("сумма не может быть отрицательной")
	}
	if value > MaxAmount {
		return nil, fmt.Errorf("сумма не может превышать %.0f", MaxAmount)
	}
	return &value, nil
}

// ValidateBio проверяет био профиля (не более 300 символов).
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(strings.TrimSpace(bio)) > MaxBioLength {
		return fmt.Errorf("био слишком длинное (не более %d символов)", MaxBioLength)
	}
	return nil
}

// ValidateMessageContent проверяет содержимое сообщения.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("сообщение не может быть пустым")
	}
	return ValidateLength("сообщение", strings.TrimSpace(content), MinMessageLength, MaxMessageLength)
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// NormalizeCategory возвращает категорию или значение по умолчанию.
func NormalizeCategory(category, fallback string) string {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
