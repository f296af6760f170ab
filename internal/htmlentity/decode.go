// Package htmlentity decodes HTML character references found in feed text.
package htmlentity

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var referenceExpr = regexp.MustCompile(`&(#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[A-Za-z][A-Za-z0-9]{1,31});`)

// Decode replaces named, decimal and hexadecimal character references with the
// characters they stand for. References that are not recognized, or that point
// at invalid code points, are kept as written. Input is scanned once, so
// "&amp;lt;" becomes "&lt;" and not "<".
func Decode(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return referenceExpr.ReplaceAllStringFunc(s, decodeReference)
}

func decodeReference(ref string) string {
	body := ref[1 : len(ref)-1]
	if body[0] != '#' {
		return decodeNamed(ref)
	}

	var (
		code uint64
		err  error
	)
	if body[1] == 'x' || body[1] == 'X' {
		code, err = strconv.ParseUint(body[2:], 16, 32)
	} else {
		code, err = strconv.ParseUint(body[1:], 10, 32)
	}
	if err != nil || code == 0 || code > utf8.MaxRune {
		return ref
	}

	r := rune(code)
	if !utf8.ValidRune(r) {
		return ref
	}
	return string(r)
}

// decodeNamed resolves a complete "&name;" reference against the HTML5 table,
// which also covers Polish letters such as &aogon; &lstrok; &zdot;.
func decodeNamed(ref string) string {
	if decoded, ok := polish[ref]; ok {
		return decoded
	}
	decoded := html.UnescapeString(ref)
	if decoded == ref || (decoded != ";" && strings.HasSuffix(decoded, ";")) {
		// Either unknown, or only a prefix matched (e.g. "&ampx;" -> "&x;").
		return ref
	}
	return decoded
}

// Spellings seen in Polish feeds that are not part of the HTML5 table.
var polish = map[string]string{
	"&aogonek;": "ą", "&Aogonek;": "Ą",
	"&eogonek;": "ę", "&Eogonek;": "Ę",
	"&zdotaccent;": "ż", "&Zdotaccent;": "Ż",
	"&lslash;": "ł", "&Lslash;": "Ł",
}
