package translate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"
)

// Хелперы над gabs: схема вендора нестабильна, поэтому любое поле может
// отсутствовать, быть null или прийти строкой вместо числа.

// child возвращает вложенный контейнер или nil, если пути нет / там null.
func child(c *gabs.Container, path ...string) *gabs.Container {
	if c == nil || c.Data() == nil {
		return nil
	}
	found := c.Search(path...)
	if found == nil || found.Data() == nil {
		return nil
	}
	return found
}

// object — как child, но только для JSON-объектов.
func object(c *gabs.Container, path ...string) *gabs.Container {
	found := child(c, path...)
	if found == nil {
		return nil
	}
	if _, ok := found.Data().(map[string]interface{}); !ok {
		return nil
	}
	return found
}

func str(c *gabs.Container, path ...string) string {
	found := child(c, path...)
	if found == nil {
		return ""
	}
	switch v := found.Data().(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// num принимает число, json.Number или строку с числом.
func num(c *gabs.Container, path ...string) (float64, bool) {
	found := child(c, path...)
	if found == nil {
		return 0, false
	}
	switch v := found.Data().(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func integer(c *gabs.Container, path ...string) int {
	f, _ := num(c, path...)
	return int(f)
}

func boolean(c *gabs.Container, path ...string) bool {
	found := child(c, path...)
	if found == nil {
		return false
	}
	switch v := found.Data().(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case float64:
		return v != 0
	}
	return false
}

// list возвращает элементы массива; не-массив даёт nil.
func list(c *gabs.Container, path ...string) []*gabs.Container {
	found := child(c, path...)
	if found == nil {
		return nil
	}
	if _, ok := found.Data().([]interface{}); !ok {
		return nil
	}
	items, err := found.Children()
	if err != nil {
		return nil
	}
	return items
}
