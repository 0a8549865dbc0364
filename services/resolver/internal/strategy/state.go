package strategy

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

var undefinedLiteral = regexp.MustCompile(`([:\[,])\s*undefined\b`)

// scriptState finds the first inline <script> assigning one of globals and
// returns the assigned object as a tree.
func scriptState(doc *goquery.Document, globals ...string) (gjson.Result, bool) {
	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); !external {
			scripts = append(scripts, s.Text())
		}
	})

	for _, g := range globals {
		for _, text := range scripts {
			if raw, ok := assignedObject(text, g); ok {
				return gjson.Parse(raw), true
			}
		}
	}
	return gjson.Result{}, false
}

// assignedObject extracts the object literal in `name = {...}` from script.
// JS undefined values are turned into null so the literal parses as JSON.
func assignedObject(script, name string) (string, bool) {
	for off := 0; ; {
		i := strings.Index(script[off:], name)
		if i < 0 {
			return "", false
		}
		off += i + len(name)

		rest := strings.TrimLeft(script[off:], " \t\r\n")
		if !strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, "==") {
			continue
		}
		obj, ok := balancedObject(strings.TrimLeft(rest[1:], " \t\r\n"))
		if !ok {
			continue
		}
		obj = undefinedLiteral.ReplaceAllString(obj, "${1}null")
		if gjson.Valid(obj) {
			return obj, true
		}
	}
}

// balancedObject returns the leading {...} of s, honouring string literals.
func balancedObject(s string) (string, bool) {
	if !strings.HasPrefix(s, "{") {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// firstSubmatch returns group 1 of the first pattern matching s.
func firstSubmatch(s string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}
