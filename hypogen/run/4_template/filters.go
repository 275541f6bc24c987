package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Filter is a pure transform applied with "value | name(args)".
type Filter func(value any, args []int) (any, error)

// Functions - Private

// defaultFilters returns the built-in filter set.
func defaultFilters() map[string]Filter {
	return map[string]Filter{
		"upper":           textFilter(strings.ToUpper),
		"lower":           textFilter(strings.ToLower),
		"camel":           textFilter(strcase.ToCamel),
		"lower_camel":     textFilter(strcase.ToLowerCamel),
		"snake":           textFilter(strcase.ToSnake),
		"screaming_snake": textFilter(strcase.ToScreamingSnake),
		"kebab":           textFilter(strcase.ToKebab),
		"quote":           textFilter(strconv.Quote),
		"hex":             hexFilter,
		"indent":          indentFilter,
	}
}

// hexFilter formats an integer as fixed-width, zero padded hex: 0x%08x by default.
func hexFilter(value any, args []int) (any, error) {
	const defaultWidth = 8

	width := defaultWidth
	if len(args) > 0 {
		width = args[0]
	}

	var n uint64

	switch val := value.(type) {
	case int:
		if val < 0 {
			return nil, fmt.Errorf("%w: hex of negative %d", util.ErrTypeMismatch, val)
		}

		n = uint64(val)
	case uint64:
		n = val
	case string:
		parsed, err := strconv.ParseUint(val, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: hex of non-integer %q", util.ErrTypeMismatch, val)
		}

		n = parsed
	default:
		return nil, fmt.Errorf("%w: hex of %T", util.ErrTypeMismatch, value)
	}

	return fmt.Sprintf("0x%0*x", width, n), nil
}

// indentFilter prefixes every non-empty line with tabs, one by default.
func indentFilter(value any, args []int) (any, error) {
	depth := 1
	if len(args) > 0 {
		depth = args[0]
	}

	prefix := strings.Repeat("\t", depth)
	lines := strings.SplitAfter(stringify(value), "\n")

	var out strings.Builder

	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out.WriteString(prefix)
		}

		out.WriteString(line)
	}

	return out.String(), nil
}

func textFilter(fn func(string) string) Filter {
	return func(value any, _ []int) (any, error) {
		return fn(stringify(value)), nil
	}
}
