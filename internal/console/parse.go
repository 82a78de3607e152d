package console

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"unicode"
)

// splitFields splits on whitespace. Double-quoted runs form one field with
// the quotes removed; an empty pair of quotes yields an empty field.
func splitFields(s string) []string {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case unicode.IsSpace(r) && !inQuote:
			if started {
				fields = append(fields, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		fields = append(fields, cur.String())
	}
	return fields
}

// dotted handles "<Type>.<command>(<args>)".
func (sh *Shell) dotted(ctx context.Context, line string) {
	kind, rest, ok := strings.Cut(line, ".")
	open := strings.IndexByte(rest, '(')
	if !ok || open < 0 || !strings.HasSuffix(rest, ")") {
		sh.println(msgUnknownSyntax + line)
		return
	}
	name, args := rest[:open], strings.TrimSpace(rest[open+1:len(rest)-1])
	if kind == "" {
		sh.println(msgClassMissing)
		return
	}
	if !sh.store.Registry().Has(kind) {
		sh.println(msgClassUnknown)
		return
	}
	switch name {
	case "all":
		sh.doAll(ctx, kind)
	case "count":
		sh.doCount(ctx, kind)
	case "show":
		sh.doShow(ctx, kind+" "+quote(unquote(args)))
	case "destroy":
		sh.doDestroy(ctx, kind+" "+quote(unquote(args)))
	case "update":
		sh.dottedUpdate(ctx, kind, args)
	default:
		sh.println(msgUnknownSyntax + line)
	}
}

// dottedUpdate accepts `<id>, <attr>, <value>` or `<id>, {<attr>: <value>, ...}`.
func (sh *Shell) dottedUpdate(ctx context.Context, kind, args string) {
	idPart, rest, _ := strings.Cut(args, ",")
	id := unquote(idPart)
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "{") {
		values, ok := parseDict(rest)
		if !ok {
			sh.println(msgUnknownSyntax + kind + ".update(" + args + ")")
			return
		}
		sh.updateDict(ctx, kind, id, values)
		return
	}
	parts := splitArgs(rest)
	var attr, value string
	if len(parts) > 0 {
		attr = parts[0]
	}
	hasValue := len(parts) > 1
	if hasValue {
		value = parts[1]
	}
	sh.update(ctx, kind, id, attr, value, hasValue)
}

// splitArgs splits call arguments on commas outside quotes and unquotes each.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		out   []string
		start int
		q     rune
	)
	for i, r := range s {
		switch {
		case q != 0:
			if r == q {
				q = 0
			}
		case r == '"' || r == '\'':
			q = r
		case r == ',':
			out = append(out, unquote(s[start:i]))
			start = i + 1
		}
	}
	return append(out, unquote(s[start:]))
}

// parseDict decodes a JSON object, also accepting single-quoted strings.
func parseDict(s string) (map[string]any, bool) {
	if m, ok := decodeObject(s); ok {
		return m, true
	}
	return decodeObject(strings.ReplaceAll(s, "'", `"`))
}

func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return m, true
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// quote wraps s so splitFields keeps it as one field.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "") + `"`
}
