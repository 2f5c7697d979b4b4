package config

import "strings"

// ConfigurationError — обязательные переменные окружения не заданы (или пустые),
// либо значения не прошли проверку. Фатальна: процесс завершается до любых
// сетевых подключений.
type ConfigurationError struct {
	Missing []string
	Invalid []string
	Hint    string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if len(e.Missing) > 0 {
		b.WriteString(": missing required environment variables: ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		b.WriteString(": invalid values: ")
		b.WriteString(strings.Join(e.Invalid, ", "))
	}
	if e.Hint != "" {
		b.WriteString(" (")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	return b.String()
}
