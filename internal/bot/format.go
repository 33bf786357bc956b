package bot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Placeholder — маркер подстановки в шаблонах чата.
const Placeholder = "%s"

// Format заменяет маркеры слева направо аргументами. Подставленный текст
// повторно не сканируется, поэтому аргумент "%s" даёт буквальный маркер.
// Лишние маркеры остаются как есть, лишние аргументы отбрасываются.
func Format(template string, args ...any) string {
	if len(args) == 0 {
		return template
	}
	var sb strings.Builder
	rest := template
	for _, arg := range args {
		i := strings.Index(rest, Placeholder)
		if i < 0 {
			break
		}
		sb.WriteString(rest[:i])
		sb.WriteString(stringify(arg))
		rest = rest[i+len(Placeholder):]
	}
	sb.WriteString(rest)
	return sb.String()
}

// stringify: строки как есть, числа и bool через strconv, остальное JSON.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64:
		return fmt.Sprint(x)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
