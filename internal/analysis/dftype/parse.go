package dftype

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gnolang/dfa/internal/analysis/lattice"
	"github.com/gnolang/dfa/internal/analysis/rangeset"
)

// Parse reads the textual form produced by String, plus a few aliases
// ("any", "bool", "long{...}").
func Parse(s string) (DfType, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "top", "any", "":
		return Top, nil
	case "bottom":
		return Bottom, nil
	case "true":
		return True, nil
	case "false":
		return False, nil
	case "bool", "boolean":
		return AnyBool, nil
	case "NaN":
		return NaN(), nil
	case "float":
		return FloatAll(), nil
	case "float!NaN":
		return FloatRange(math.Inf(-1), math.Inf(1)), nil
	}
	switch {
	case strings.HasPrefix(s, "int"):
		return parseIntegral(rangeset.Int, s[len("int"):])
	case strings.HasPrefix(s, "long"):
		return parseIntegral(rangeset.Long, s[len("long"):])
	case strings.HasPrefix(s, "float{"):
		return parseFloat(s)
	case strings.HasPrefix(s, `"`):
		return parseConst(s)
	}
	return parseRef(s)
}

func parseIntegral(k rangeset.Kind, rest string) (DfType, error) {
	if rest == "" {
		return IntAll(k), nil
	}
	body, ok := braced(rest)
	if !ok {
		return nil, fmt.Errorf("malformed %s range %q", k, rest)
	}
	var ivs []rangeset.Interval
	for _, part := range strings.Split(body, ",") {
		lo, hi, err := parseBounds(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ivs = append(ivs, rangeset.Interval{Lo: lo, Hi: hi})
	}
	return fromRange(k, rangeset.Of(ivs...).Cast(k)), nil
}

func parseBounds(part string) (int64, int64, error) {
	lo, hi, found := strings.Cut(part, "..")
	l, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return l, l, nil
	}
	h, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return l, h, nil
}

func parseFloat(s string) (DfType, error) {
	nan := strings.HasSuffix(s, "|NaN")
	body, ok := braced(strings.TrimSuffix(s[len("float"):], "|NaN"))
	if !ok {
		return nil, fmt.Errorf("malformed float range %q", s)
	}
	lo, hi, found := strings.Cut(body, "..")
	l, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return nil, err
	}
	h := l
	if found {
		if h, err = strconv.ParseFloat(strings.TrimSpace(hi), 64); err != nil {
			return nil, err
		}
	}
	return mkFloat(l, h, true, nan), nil
}

func parseConst(s string) (DfType, error) {
	end := strings.LastIndex(s, `"`)
	if end <= 0 {
		return nil, fmt.Errorf("unterminated constant %q", s)
	}
	str, err := strconv.Unquote(s[:end+1])
	if err != nil {
		return nil, err
	}
	typeName := strings.TrimSpace(s[end+1:])
	if typeName == "" {
		typeName = "String"
	}
	return Const(str, typeName), nil
}

func parseRef(s string) (DfType, error) {
	fields := strings.Fields(s)
	var null lattice.Nullability
	switch fields[0] {
	case "null":
		null = lattice.Null
	case "!null":
		null = lattice.NotNull
	case "?null":
		null = lattice.Nullable
	case "ref":
		null = lattice.Unknown
	default:
		return nil, fmt.Errorf("unknown type %q", s)
	}
	var inst, notInst []string
	for i := 1; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			return nil, fmt.Errorf("missing type list in %q", s)
		}
		names := strings.Split(fields[i+1], ",")
		switch fields[i] {
		case "instanceof":
			inst = append(inst, names...)
		case "!instanceof":
			notInst = append(notInst, names...)
		default:
			return nil, fmt.Errorf("unexpected %q in %q", fields[i], s)
		}
	}
	return mkRef(null, inst, notInst), nil
}

func braced(s string) (string, bool) {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return "", false
	}
	return s[1 : len(s)-1], true
}
