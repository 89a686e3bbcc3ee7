package render

import (
	"html"
	"strconv"
	"strings"

	xhtml "golang.org/x/net/html"
)

// HTMLToText converts the rich text used in event descriptions and
// announcements to wrapped plain text. It understands paragraphs, line
// breaks, headings, lists, emphasis, inline code, pre blocks and links.
// Plain text passes through unchanged apart from wrapping.
func HTMLToText(raw string, width int) string {
	if raw == "" {
		return ""
	}

	raw = html.UnescapeString(raw)

	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var sb strings.Builder
	var inPre, inCode bool
	var anchorURL string
	var listDepth int
	var ordered []int

	newBlock := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n\n") {
			if strings.HasSuffix(sb.String(), "\n") {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
	}
	newLine := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteString("\n")
		}
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return wrapText(strings.TrimSpace(sb.String()), width)

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "p", "div", "h1", "h2", "h3", "h4":
				newBlock()
			case "br":
				sb.WriteString("\n")
			case "ul":
				newLine()
				listDepth++
				ordered = append(ordered, 0)
			case "ol":
				newLine()
				listDepth++
				ordered = append(ordered, 1)
			case "li":
				newLine()
				sb.WriteString(strings.Repeat("  ", max(0, listDepth-1)))
				if n := len(ordered); n > 0 && ordered[n-1] > 0 {
					sb.WriteString(strconv.Itoa(ordered[n-1]))
					sb.WriteString(". ")
					ordered[n-1]++
				} else {
					sb.WriteString("• ")
				}
			case "i", "em":
				sb.WriteString("*")
			case "b", "strong":
				sb.WriteString("**")
			case "code":
				if !inPre {
					sb.WriteString("`")
				}
				inCode = true
			case "pre":
				inPre = true
				sb.WriteString("\n")
			case "a":
				for _, attr := range t.Attr {
					if attr.Key == "href" {
						anchorURL = attr.Val
					}
				}
			}

		case xhtml.EndTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "h1", "h2", "h3", "h4":
				newBlock()
			case "ul", "ol":
				if listDepth > 0 {
					listDepth--
					ordered = ordered[:len(ordered)-1]
				}
				newLine()
			case "i", "em":
				sb.WriteString("*")
			case "b", "strong":
				sb.WriteString("**")
			case "code":
				if !inPre {
					sb.WriteString("`")
				}
				inCode = false
			case "pre":
				inPre = false
				sb.WriteString("\n")
			case "a":
				if anchorURL != "" {
					text := strings.TrimSpace(sb.String())
					// Only append URL if it differs from the link text.
					if !strings.HasSuffix(text, anchorURL) {
						sb.WriteString(" [")
						sb.WriteString(anchorURL)
						sb.WriteString("]")
					}
				}
				anchorURL = ""
			}

		case xhtml.TextToken:
			text := tokenizer.Token().Data
			switch {
			case inPre:
				// Preserve whitespace in pre blocks, indent with 4 spaces.
				lines := strings.Split(text, "\n")
				for i, line := range lines {
					if i > 0 {
						sb.WriteString("\n")
					}
					if line != "" {
						sb.WriteString("    ")
						sb.WriteString(line)
					}
				}
			case inCode:
				sb.WriteString(text)
			case listDepth > 0:
				sb.WriteString(strings.TrimSpace(text))
			default:
				sb.WriteString(text)
			}
		}
	}
}

// Preview flattens raw to a single line of at most n runes.
func Preview(raw string, n int) string {
	text := strings.Join(strings.Fields(HTMLToText(raw, 0)), " ")
	return Truncate(text, n)
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// wrapText performs simple word wrapping to the given width.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var result strings.Builder
	for _, paragraph := range strings.Split(text, "\n") {
		if strings.HasPrefix(paragraph, "    ") {
			// Don't wrap code blocks.
			result.WriteString(paragraph)
			result.WriteString("\n")
			continue
		}
		indent := leadingSpaces(paragraph)
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}
		result.WriteString(indent)
		lineLen := len(indent)
		for i, word := range words {
			wlen := len([]rune(word))
			if i > 0 && lineLen+1+wlen > width {
				result.WriteString("\n")
				result.WriteString(indent)
				lineLen = len(indent)
			} else if i > 0 {
				result.WriteString(" ")
				lineLen++
			}
			result.WriteString(word)
			lineLen += wlen
		}
		result.WriteString("\n")
	}
	return strings.TrimRight(result.String(), "\n")
}

func leadingSpaces(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " "))]
}
