package fragment

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FormatLiteral renders v as a literal in query text. It is used by the
// Inline build mode only.
func FormatLiteral(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case time.Time:
		return "d" + quoteString(v.UTC().Format(time.RFC3339Nano))
	case time.Duration:
		return formatDuration(v)
	case fmt.Stringer:
		return quoteString(v.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float())
	case reflect.String:
		return quoteString(rv.String())
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "NULL"
		}
		return FormatLiteral(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]"
		}
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = FormatLiteral(rv.Index(i).Interface())
		}
		return "[" + strings.Join(items, ", ") + "]"
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		// Sorted for a deterministic rendering.
		sort.Strings(keys)
		if len(keys) == 0 {
			return "{}"
		}
		items := make([]string, len(keys))
		for i, k := range keys {
			item := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			items[i] = QuoteIdent(k) + ": " + FormatLiteral(item.Interface())
		}
		return "{ " + strings.Join(items, ", ") + " }"
	}
	return quoteString(fmt.Sprintf("%v", v))
}

// quoteString single quotes s, escaping backslashes and quotes.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// formatDuration writes d in the engine's duration syntax, e.g. 1h30m.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0ns"
	}
	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}
	units := []struct {
		suffix string
		size   time.Duration
	}{
		{"h", time.Hour}, {"m", time.Minute}, {"s", time.Second},
		{"ms", time.Millisecond}, {"µs", time.Microsecond}, {"ns", time.Nanosecond},
	}
	for _, u := range units {
		if n := d / u.size; n > 0 {
			sb.WriteString(strconv.FormatInt(int64(n), 10))
			sb.WriteString(u.suffix)
			d -= n * u.size
		}
	}
	return sb.String()
}
