package simulate

import (
	"regexp"
	"strings"
)

// NoOutput is returned when no print call was recognized.
const NoOutput = "Code executed successfully!\n(Simulated - connect API Gateway for real execution)"

// printCall captures everything between "print(" and the last ")" on the line.
var printCall = regexp.MustCompile(`print\((.*)\)`)

// Run approximates the printed output of a small Python script without executing it.
// Each line is handled on its own: only lines starting with print( contribute output,
// and their argument is echoed rather than evaluated. Run never fails.
func Run(source string) string {
	var out strings.Builder

	for _, line := range strings.Split(source, "\n") {
		printed, ok := PrintedText(line)
		if !ok {
			continue
		}
		out.WriteString(printed)
		out.WriteByte('\n')
	}

	if out.Len() == 0 {
		return NoOutput
	}
	return out.String()
}

// PrintedText returns the text a single line would print, and false when the
// line is not a recognizable print call.
func PrintedText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "print(") {
		return "", false
	}

	match := printCall.FindStringSubmatch(trimmed)
	if match == nil {
		return "", false
	}
	content := match[1]

	switch {
	case isQuoted(content, '"') || isQuoted(content, '\''):
		return slice(content, 1, 1), true
	case strings.HasPrefix(content, `f"`) || strings.HasPrefix(content, "f'"):
		// Interpolation placeholders are passed through untouched.
		return slice(content, 2, 1), true
	default:
		return content, true
	}
}

func isQuoted(s string, quote byte) bool {
	return len(s) > 0 && s[0] == quote && s[len(s)-1] == quote
}

// slice drops head bytes from the front and tail bytes from the back,
// returning "" when nothing is left.
func slice(s string, head, tail int) string {
	end := len(s) - tail
	if end <= head {
		return ""
	}
	return s[head:end]
}
