package builtin

import (
	"strings"

	"github.com/magoolation/intmud/internal/value"
	"github.com/magoolation/intmud/internal/vm"
)

// registerVarTrocaFuncs wires vartroca/vartrocacod (spec §4.6 "Variable
// exchange").
func registerVarTrocaFuncs(t map[string]fn) {
	t["vartroca"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Str(varTroca(args, false))
	}
	t["vartrocacod"] = func(m *vm.VM, args []value.Value) value.Value {
		return value.Str(varTroca(args, true))
	}
}

// varTroca replaces every `$name` occurrence in args[0] with the value
// paired to that name in the following (name, value) pairs, applying the
// `@`-escape codec to each substituted value when encode is true.
func varTroca(args []value.Value, encode bool) string {
	text := arg(args, 0).ToString()
	if text == "" {
		return ""
	}
	pairs := make(map[string]string)
	for i := 1; i+1 < len(args); i += 2 {
		name := args[i].ToString()
		val := args[i+1].ToString()
		if encode {
			val = arrobaEncode(val)
		}
		pairs[name] = val
	}

	var b strings.Builder
	for i := 0; i < len(text); {
		if text[i] != '$' {
			b.WriteByte(text[i])
			i++
			continue
		}
		j := i + 1
		for j < len(text) && isNameByte(text[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte(text[i])
			i++
			continue
		}
		name := text[i+1 : j]
		if v, ok := pairs[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(text[i:j])
		}
		i = j
	}
	return b.String()
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// arrobaEncode is the `@`-prefix escape codec (spec §4.6): `@`, `\`, `"`,
// and bytes below 32 are emitted as `@` followed by byte+64.
func arrobaEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '@' || c == '\\' || c == '"' || c < 32 {
			b.WriteByte('@')
			b.WriteByte(c + 64)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// arrobaDecode reverses arrobaEncode, exposed to internal/builtin's text
// category as the encoding-helper pair.
func arrobaDecode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '@' && i+1 < len(s) {
			b.WriteByte(s[i+1] - 64)
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
