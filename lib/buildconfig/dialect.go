package buildconfig

import (
	"bytes"
	"io"
	"strings"
	"unicode"

	"gopkg.in/ini.v1"
)

const delimiters = "=:"

// iniOptions read the text produced by normalize. Values are taken verbatim:
// no quote stripping, no backslash continuation, no inline comments.
var iniOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	IgnoreContinuation:      true,
	PreserveSurroundedQuote: true,
	KeyValueDelimiters:      delimiters,
}

type pendingValue struct {
	key   string
	lines []string
}

// normalize rewrites configparser-style INI text into a form ini.v1 reads the
// same way configparser does.
//
// Full-line comments are dropped wherever they appear. A line indented deeper
// than its option line continues the value, and so do blank lines between
// such lines. Continuation lines are stripped. Multi-line values are emitted
// in ini.v1's triple-quoted form with leading and trailing blank lines
// removed.
func normalize(data []byte) []byte {
	var (
		out    bytes.Buffer
		cur    *pendingValue
		indent int
	)
	flush := func() {
		if cur == nil {
			return
		}
		val := strings.Trim(strings.Join(cur.lines, "\n"), "\n")
		out.WriteString(cur.key)
		out.WriteString(" = ")
		out.WriteString(quoteValue(val))
		out.WriteByte('\n')
		cur = nil
	}

	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if line == "" {
			if cur != nil {
				cur.lines = append(cur.lines, "")
			}
			continue
		}

		level := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		if cur != nil && level > indent {
			cur.lines = append(cur.lines, line)
			continue
		}

		flush()
		indent = level
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		i := strings.IndexAny(line, delimiters)
		if i < 0 {
			// ini.v1 reports the missing delimiter.
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		cur = &pendingValue{
			key:   strings.TrimSpace(line[:i]),
			lines: []string{strings.TrimSpace(line[i+1:])},
		}
	}
	flush()

	return out.Bytes()
}

// quoteValue protects values ini.v1 would otherwise reinterpret.
func quoteValue(val string) string {
	if strings.Contains(val, "\n") || strings.HasPrefix(val, "`") || strings.HasPrefix(val, `"""`) {
		return `"""` + val + `"""`
	}
	return val
}

// writeINI serializes file the way configparser writes: continuation lines
// are tab-indented and every section is followed by a blank line.
func writeINI(w io.Writer, file *ini.File) error {
	var buf bytes.Buffer
	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		buf.WriteString("[" + sec.Name() + "]\n")
		for _, key := range sec.Keys() {
			buf.WriteString(key.Name())
			buf.WriteString(" = ")
			buf.WriteString(strings.ReplaceAll(key.Value(), "\n", "\n\t"))
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	_, err := buf.WriteTo(w)
	return err
}
