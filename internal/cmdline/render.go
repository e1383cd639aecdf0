package cmdline

import (
	"fmt"
	"strings"
)

// Render appends the Dict to cmd as command-line tokens, iterating keys in
// sorted order. Booleans render as a single token: --key for true, --nokey
// for false. Any other value renders as --key followed by the quoted value.
// Nil values emit nothing.
func Render(cmd []string, d Dict) []string {
	for _, k := range sortedKeys(d) {
		switch v := d[k].(type) {
		case nil:
			continue
		case bool:
			if v {
				cmd = append(cmd, "--"+k)
			} else {
				cmd = append(cmd, "--no"+k)
			}
		case string:
			cmd = append(cmd, "--"+k, Quote(v))
		default:
			cmd = append(cmd, "--"+k, Quote(fmt.Sprint(v)))
		}
	}
	return cmd
}

// Quote wraps value in double quotes. A value that already starts and ends
// with matching single or double quotes is passed through unchanged, so
// pre-quoted arguments are never quoted twice.
func Quote(value string) string {
	if isQuoted(value) {
		return value
	}
	return `"` + value + `"`
}

func isQuoted(value string) bool {
	if len(value) < 2 {
		return false
	}
	if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return true
	}
	return strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)
}
