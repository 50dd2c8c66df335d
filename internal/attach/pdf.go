package attach

import (
	"bytes"
	"regexp"
	"strings"
)

// pdfTextRe matches parenthesized string operands of Tj/TJ show-text
// operators in uncompressed content streams.
var pdfTextRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*T[jJ]`)

// maxPDFText caps the extracted text carried into a prompt.
const maxPDFText = 8000

// ExtractPDFText pulls visible text out of uncompressed PDF content
// streams. Compressed streams yield nothing; this is a best-effort
// extraction, and an empty result just means the document text is
// omitted from the prompt.
func ExtractPDFText(data []byte) string {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return ""
	}

	var b strings.Builder
	for _, m := range pdfTextRe.FindAllSubmatch(data, -1) {
		text := unescapePDFString(string(m[1]))
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
		if b.Len() >= maxPDFText {
			break
		}
	}

	out := b.String()
	if len(out) > maxPDFText {
		out = out[:maxPDFText]
	}
	return strings.TrimSpace(out)
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
	return replacer.Replace(s)
}
