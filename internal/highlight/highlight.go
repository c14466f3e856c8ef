// Package highlight renders code blocks with token-class span markup. It is
// a deliberately small lexer: keywords, strings, comments, and numbers per
// language, which covers the code samples technical documents embed.
package highlight

import (
	"strings"
	"unicode"
)

// Options selects the highlighting behavior for one block.
type Options struct {
	// Language names the keyword table; unknown languages highlight
	// strings, comments, and numbers only.
	Language string
}

var keywords = map[string][]string{
	"go": {
		"break", "case", "chan", "const", "continue", "default", "defer",
		"else", "for", "func", "go", "goto", "if", "import", "interface",
		"map", "package", "range", "return", "select", "struct", "switch",
		"type", "var",
	},
	"js": {
		"await", "break", "case", "catch", "class", "const", "continue",
		"default", "delete", "else", "export", "extends", "finally", "for",
		"function", "if", "import", "in", "instanceof", "let", "new",
		"return", "switch", "throw", "try", "typeof", "var", "while",
		"yield",
	},
	"c": {
		"break", "case", "char", "const", "continue", "default", "do",
		"double", "else", "enum", "extern", "float", "for", "goto", "if",
		"int", "long", "return", "short", "signed", "sizeof", "static",
		"struct", "switch", "typedef", "union", "unsigned", "void", "while",
	},
}

// Highlight converts raw code to markup with span elements classed by token
// kind. The output contains only span wrappers and escaped text; feeding it
// through Highlight again is a no-op on the underlying text.
func Highlight(content string, opts Options) string {
	kw := keywordSet(opts.Language)
	var sb strings.Builder
	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case c == '/' && i+1 < len(content) && content[i+1] == '/':
			end := strings.IndexByte(content[i:], '\n')
			if end < 0 {
				end = len(content) - i
			}
			emit(&sb, "comment", content[i:i+end])
			i += end
		case c == '/' && i+1 < len(content) && content[i+1] == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				emit(&sb, "comment", content[i:])
				i = len(content)
			} else {
				emit(&sb, "comment", content[i:i+end+4])
				i += end + 4
			}
		case c == '"' || c == '\'' || c == '`':
			end := stringEnd(content, i)
			emit(&sb, "string", content[i:end])
			i = end
		case c >= '0' && c <= '9':
			end := i
			for end < len(content) && (isWordChar(rune(content[end])) || content[end] == '.') {
				end++
			}
			emit(&sb, "number", content[i:end])
			i = end
		case isWordStart(rune(c)):
			end := i
			for end < len(content) && isWordChar(rune(content[end])) {
				end++
			}
			word := content[i:end]
			if kw[word] {
				emit(&sb, "keyword", word)
			} else {
				sb.WriteString(escape(word))
			}
			i = end
		default:
			sb.WriteString(escape(content[i : i+1]))
			i++
		}
	}
	return sb.String()
}

func keywordSet(lang string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range keywords[strings.ToLower(lang)] {
		set[w] = true
	}
	return set
}

// stringEnd finds the index just past the closing quote, honoring backslash
// escapes. Unterminated strings run to end of input.
func stringEnd(content string, start int) int {
	quote := content[start]
	for i := start + 1; i < len(content); i++ {
		if content[i] == '\\' && quote != '`' {
			i++
			continue
		}
		if content[i] == quote {
			return i + 1
		}
	}
	return len(content)
}

func emit(sb *strings.Builder, class, text string) {
	sb.WriteString(`<span class="hl-`)
	sb.WriteString(class)
	sb.WriteString(`">`)
	sb.WriteString(escape(text))
	sb.WriteString(`</span>`)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
