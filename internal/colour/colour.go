// Package colour implements the {token} markup renderer (spec §6): a
// closed set of named tokens mapped to ANSI SGR escapes, plus an explicit
// strip operation that removes tokens without resolving them — the
// renderer a TelaTxt/Socket output pipeline runs text through before it
// reaches a real terminal or is logged to a file that shouldn't carry
// escape codes.
package colour

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`\{([a-zA-Z]+)\}`)

// codes is the fixed closed set from spec §6, plus the documented
// one-letter shorthand forms (first letter of each colour name, except
// black, which uses "k" because "b" is blue; bold/dim etc. have no
// shorthand since they'd collide).
var codes = map[string]string{
	"reset": "0", "clear": "0",
	"black": "30", "red": "31", "green": "32", "yellow": "33",
	"blue": "34", "magenta": "35", "cyan": "36", "white": "37",
	"brightred": "91", "brightgreen": "92", "brightyellow": "93",
	"brightblue": "94", "brightmagenta": "95", "brightcyan": "96", "brightwhite": "97",
	"bold": "1", "dim": "2", "italic": "3", "underline": "4", "reverse": "7",
	"k": "30", "r": "31", "g": "32", "y": "33",
	"b": "34", "m": "35", "c": "36", "w": "37",
}

// Render replaces every recognised {token} with its ANSI SGR escape;
// unrecognised tokens pass through unchanged (spec §6 "unknown tokens pass
// through unchanged").
func Render(s string) string {
	return tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		name := strings.ToLower(tok[1 : len(tok)-1])
		code, ok := codes[name]
		if !ok {
			return tok
		}
		return "\x1b[" + code + "m"
	})
}

// Strip removes every recognised {token} without resolving it to an
// escape sequence (spec §6 "explicit strip operation"). It operates on the
// {token} source form, not on Render's output: text that has already been
// rendered still carries escape sequences after Strip, and StripANSI below
// is the operation that removes those.
func Strip(s string) string {
	return tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		name := strings.ToLower(tok[1 : len(tok)-1])
		if _, ok := codes[name]; !ok {
			return tok
		}
		return ""
	})
}

// StripANSI removes already-rendered ANSI SGR escapes (ESC [ ... m),
// complementing Strip for text that has already passed through Render.
var ansiRe = regexp.MustCompile("\x1b\\[[0-9;]*m")

func StripANSI(s string) string { return ansiRe.ReplaceAllString(s, "") }
