package builtin

import (
	"regexp"
)

// сплит с поддержкой кавычек: !move "dj with spaces" 2
var reArg = regexp.MustCompile(`"([^"]*)"|(\S+)`)

func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}
