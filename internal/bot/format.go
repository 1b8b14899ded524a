package bot

import (
	"strconv"
	"strings"
)

// FormatPrice форматирует цену, убирая лишние нули
func FormatPrice(price float64) string {
	formatted := strconv.FormatFloat(price, 'g', -1, 64)

	// Проверяем, не получилась ли экспоненциальная запись для маленьких чисел
	if strings.Contains(formatted, "e") && price > 0.000001 {
		formatted = strconv.FormatFloat(price, 'f', -1, 64)
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
	}

	return formatted
}
