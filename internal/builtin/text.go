package builtin

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// registerTextFuncs wires the text-function category (spec §4.6, ≈50
// functions across case conversion, search, replace, trimming, splitting,
// encoding, hashing, distance, and validation).
func registerTextFuncs(t map[string]fn) {
	t["maiusc"] = str1(strings.ToUpper)
	t["minusc"] = str1(strings.ToLower)
	t["titulo"] = str1(titleCasePreserving)

	t["acha"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(strings.Index(arg(args, 0).ToString(), arg(args, 1).ToString())))
	}
	t["achaignorarcaixa"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(strings.Index(strings.ToLower(arg(args, 0).ToString()), strings.ToLower(arg(args, 1).ToString()))))
	}
	t["achamaiusc"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(strings.Index(strings.ToUpper(arg(args, 0).ToString()), strings.ToUpper(arg(args, 1).ToString()))))
	}
	t["achalinha"] = func(m *vm.VM, args []value.Value) value.Value {
		lines := strings.Split(arg(args, 0).ToString(), "\n")
		needle := arg(args, 1).ToString()
		for i, ln := range lines {
			if strings.Contains(ln, needle) {
				return value.Int(int64(i))
			}
		}
		return value.Int(-1)
	}
	t["achapalavra"] = func(m *vm.VM, args []value.Value) value.Value {
		words := strings.Fields(arg(args, 0).ToString())
		needle := arg(args, 1).ToString()
		for i, w := range words {
			if w == needle {
				return value.Int(int64(i))
			}
		}
		return value.Int(-1)
	}

	t["troca"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Str(strings.ReplaceAll(arg(args, 0).ToString(), arg(args, 1).ToString(), arg(args, 2).ToString()))
	}

	t["tamanho"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(len([]rune(arg(args, 0).ToString()))))
	}

	t["apara"] = str1(strings.TrimSpace)
	t["aparaesq"] = str1(func(s string) string { return strings.TrimLeft(s, " \t\r\n") })
	t["aparadir"] = str1(func(s string) string { return strings.TrimRight(s, " \t\r\n") })

	t["parte"] = func(m *vm.VM, args []value.Value) value.Value {
		runes := []rune(arg(args, 0).ToString())
		start := clampIndex(int(arg(args, 1).ToInt()), len(runes))
		length := int(arg(args, 2).ToInt())
		end := clampIndex(start+length, len(runes))
		if end < start {
			end = start
		}
		return value.Str(string(runes[start:end]))
	}
	t["partepalavra"] = func(m *vm.VM, args []value.Value) value.Value {
		words := strings.Fields(arg(args, 0).ToString())
		i := int(arg(args, 1).ToInt())
		if i < 0 || i >= len(words) {
			return value.Str("")
		}
		return value.Str(words[i])
	}
	t["partelinha"] = func(m *vm.VM, args []value.Value) value.Value {
		lines := strings.Split(arg(args, 0).ToString(), "\n")
		i := int(arg(args, 1).ToInt())
		if i < 0 || i >= len(lines) {
			return value.Str("")
		}
		return value.Str(lines[i])
	}
	t["primeirapalavra"] = func(m *vm.VM, args []value.Value) value.Value {
		w, _ := splitFirstWord(arg(args, 0).ToString())
		return value.Str(w)
	}
	t["resto"] = func(m *vm.VM, args []value.Value) value.Value {
		_, rest := splitFirstWord(arg(args, 0).ToString())
		return value.Str(rest)
	}
	t["ultimos"] = func(m *vm.VM, args []value.Value) value.Value {
		runes := []rune(arg(args, 0).ToString())
		n := int(arg(args, 1).ToInt())
		if n <= 0 {
			return value.Str("")
		}
		if n > len(runes) {
			n = len(runes)
		}
		return value.Str(string(runes[len(runes)-n:]))
	}
	t["inverte"] = str1(reverseString)
	t["repete"] = func(m *vm.VM, args []value.Value) value.Value {
		n := int(arg(args, 1).ToInt())
		if n < 0 {
			n = 0
		}
		return value.Str(strings.Repeat(arg(args, 0).ToString(), n))
	}
	t["espacos"] = func(m *vm.VM, args []value.Value) value.Value {
		n := int(arg(args, 0).ToInt())
		if n < 0 {
			n = 0
		}
		return value.Str(strings.Repeat(" ", n))
	}
	t["copiarcaixa"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Str(copyCase(arg(args, 0).ToString(), arg(args, 1).ToString()))
	}
	t["alternarcaixa"] = func(m *vm.VM, args []value.Value) value.Value {
		runes := []rune(arg(args, 0).ToString())
		var rest []value.Value
		if len(args) > 1 {
			rest = args[1:]
		}
		for _, a := range rest {
			i := int(a.ToInt())
			if i < 0 || i >= len(runes) {
				continue
			}
			if unicode.IsUpper(runes[i]) {
				runes[i] = unicode.ToLower(runes[i])
			} else {
				runes[i] = unicode.ToUpper(runes[i])
			}
		}
		return value.Str(string(runes))
	}
	t["remover"] = func(m *vm.VM, args []value.Value) value.Value {
		cut := arg(args, 1).ToString()
		return value.Str(strings.Map(func(r rune) rune {
			if strings.ContainsRune(cut, r) {
				return -1
			}
			return r
		}, arg(args, 0).ToString()))
	}
	t["filtrar"] = str1(func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r <= 126) {
				b.WriteRune(r)
			}
		}
		return b.String()
	})

	t["arrobacod"] = str1(arrobaEncode)
	t["arrobadecod"] = str1(arrobaDecode)
	t["barracod"] = str1(backslashEncode)
	t["barradecod"] = str1(backslashDecode)
	t["urlcod"] = str1(url.QueryEscape)
	t["urldecod"] = func(m *vm.VM, args []value.Value) value.Value {
		s, err := url.QueryUnescape(arg(args, 0).ToString())
		if err != nil {
			return value.Str("")
		}
		return value.Str(s)
	}

	t["sha1hex"] = str1(func(s string) string {
		sum := sha1.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	t["md5hex"] = str1(func(s string) string {
		sum := md5.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	t["senha64"] = str1(passwordHash)

	t["distancia"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(levenshtein(arg(args, 0).ToString(), arg(args, 1).ToString())))
	}
	t["distanciaignorarcaixa"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(levenshtein(strings.ToLower(arg(args, 0).ToString()), strings.ToLower(arg(args, 1).ToString()))))
	}
	t["distanciamaiusc"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(levenshtein(strings.ToUpper(arg(args, 0).ToString()), strings.ToUpper(arg(args, 1).ToString()))))
	}

	t["nomevalido"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Bool(validName(arg(args, 0).ToString()))
	}
	t["forcasenha"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Int(int64(passwordStrength(arg(args, 0).ToString())))
	}

	t["convlatin1"] = str1(toLatin1)
	t["convutf8"] = str1(fromLatin1)
	t["convascii"] = str1(toASCII)
	t["convutf16"] = str1(toUTF16LE)
	t["convutf16para8"] = str1(fromUTF16LE)
}

func str1(f func(string) string) fn {
	return func(m *vm.VM, args []value.Value) value.Value {
		return value.Str(f(arg(args, 0).ToString()))
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func splitFirstWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// copyCase applies pattern's per-rune case to text, repeating pattern's
// case if text is longer (spec §4.6 "case-copy-from-pattern").
func copyCase(pattern, text string) string {
	pr := []rune(pattern)
	tr := []rune(text)
	if len(pr) == 0 {
		return text
	}
	out := make([]rune, len(tr))
	for i, r := range tr {
		if unicode.IsUpper(pr[i%len(pr)]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}

// titleCasePreserving uppercases the first letter of each whitespace-
// separated word, leaving every other rune's case untouched.
func titleCasePreserving(s string) string {
	runes := []rune(s)
	atStart := true
	for i, r := range runes {
		if unicode.IsSpace(r) {
			atStart = true
			continue
		}
		if atStart {
			runes[i] = unicode.ToUpper(r)
			atStart = false
		}
	}
	return string(runes)
}

// backslashEncode makes control characters visible as backslash escapes
// (`\n`, `\r`, `\t`, `\\`); backslashDecode reverses it.
func backslashEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func backslashDecode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// passwordHash is the compact 22-character base-64-like SHA-1 encoding
// used for passwords (spec §4.6): the first 22 characters of the URL-safe,
// unpadded base64 encoding of the raw 20-byte SHA-1 digest (the full
// encoding is 27 characters).
func passwordHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:22]
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	if !unicode.IsLetter(r[0]) {
		return false
	}
	for _, c := range r[1:] {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

// passwordStrength scores 0-5 from presence of lower/upper/digit/special
// and length >= 8 (spec §4.6).
func passwordStrength(s string) int {
	score := 0
	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasSpecial} {
		if ok {
			score++
		}
	}
	if len([]rune(s)) >= 8 {
		score++
	}
	return score
}

// toLatin1 reinterprets s's Unicode code points as Latin-1 (ISO-8859-1)
// bytes, one byte per rune <= 0xFF and '?' otherwise.
func toLatin1(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= 0xFF {
			b.WriteByte(byte(r))
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// fromLatin1 reinterprets a Latin-1 byte string as Unicode code points
// (the companion decode to toLatin1 — Latin-1 maps byte value directly to
// code point, needing no external charmap table).
func fromLatin1(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteRune(rune(s[i]))
	}
	return b.String()
}

func toASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

func toUTF16LE(s string) string {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	return string(buf)
}

func fromUTF16LE(s string) string {
	b := []byte(s)
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}
