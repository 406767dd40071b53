package evaluator

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// StringMethodRegistry defines all methods available on string values.
// Initialized in init() to avoid an initialization cycle.
var StringMethodRegistry MethodRegistry

func init() {
	StringMethodRegistry = MethodRegistry{
		"toUpper": {
			Fn:          stringToUpper,
			Arity:       "0-1",
			Description: "Convert to uppercase (locale?)",
		},
		"toLower": {
			Fn:          stringToLower,
			Arity:       "0-1",
			Description: "Convert to lowercase (locale?)",
		},
		"toTitle": {
			Fn:          stringToTitle,
			Arity:       "0-1",
			Description: "Capitalize each word (locale?)",
		},
		"trim": {
			Fn:          stringTrim,
			Arity:       "0",
			Description: "Remove leading/trailing whitespace",
		},
		"split": {
			Fn:          stringSplit,
			Arity:       "1",
			Description: "Split by delimiter into array",
		},
		"replace": {
			Fn:          stringReplace,
			Arity:       "2",
			Description: "Replace all occurrences",
		},
		"includes": {
			Fn:          stringIncludes,
			Arity:       "1",
			Description: "Check if contains substring",
		},
		"startsWith": {
			Fn:          stringStartsWith,
			Arity:       "1",
			Description: "Check prefix",
		},
		"endsWith": {
			Fn:          stringEndsWith,
			Arity:       "1",
			Description: "Check suffix",
		},
		"indexOf": {
			Fn:          stringIndexOf,
			Arity:       "1",
			Description: "Character index of substring, or -1",
		},
		"substring": {
			Fn:          stringSubstring,
			Arity:       "1-2",
			Description: "Characters from start to end (exclusive)",
		},
		"repeat": {
			Fn:          stringRepeat,
			Arity:       "1",
			Description: "Repeat n times",
		},
		"toNumber": {
			Fn:          stringToNumber,
			Arity:       "0",
			Description: "Parse as number",
		},
		"toDate": {
			Fn:          stringToDate,
			Arity:       "0",
			Description: "Parse as date",
		},
		"markdown": {
			Fn:          stringMarkdown,
			Arity:       "0",
			Description: "Render markdown to HTML",
		},
	}

	RegisterMethodRegistry(STRING_OBJ, StringMethodRegistry, PropertyRegistry{
		"length": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				return &Number{Value: float64(utf8.RuneCountInString(receiver.(*String).Value))}, nil
			},
			Description: "Character count",
		},
	})
}

func stringArg(method string, args []Object, i int) (string, error) {
	s, ok := args[i].(*String)
	if !ok {
		return "", newTypeError(method, "a string", args[i])
	}
	return s.Value, nil
}

func wholeArg(method string, args []Object, i int) (int, error) {
	n, ok := toInt(args[i])
	if !ok {
		return 0, newTypeError(method, "a whole number", args[i])
	}
	return n, nil
}

func stringToUpper(ctx *Context, receiver Object, args []Object) (Object, error) {
	return stringCase(ctx, "toUpper", "upper", receiver, args)
}

func stringToLower(ctx *Context, receiver Object, args []Object) (Object, error) {
	return stringCase(ctx, "toLower", "lower", receiver, args)
}

func stringToTitle(ctx *Context, receiver Object, args []Object) (Object, error) {
	return stringCase(ctx, "toTitle", "title", receiver, args)
}

func stringCase(ctx *Context, method, kind string, receiver Object, args []Object) (Object, error) {
	locale, err := localeArg(ctx, method, args, 0)
	if err != nil {
		return nil, err
	}
	return &String{Value: caserFor(kind, locale).String(receiver.(*String).Value)}, nil
}

func stringTrim(ctx *Context, receiver Object, args []Object) (Object, error) {
	return &String{Value: strings.TrimSpace(receiver.(*String).Value)}, nil
}

func stringSplit(ctx *Context, receiver Object, args []Object) (Object, error) {
	delim, err := stringArg("split", args, 0)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(receiver.(*String).Value, delim)
	elements := make([]Object, len(parts))
	for i, part := range parts {
		elements[i] = &String{Value: part}
	}
	return &Array{Elements: elements}, nil
}

func stringReplace(ctx *Context, receiver Object, args []Object) (Object, error) {
	str := receiver.(*String).Value
	search, err := stringArg("replace", args, 0)
	if err != nil {
		return nil, err
	}
	replacement, err := stringArg("replace", args, 1)
	if err != nil {
		return nil, err
	}
	if search != "" {
		n := strings.Count(str, search)
		grown := utf8.RuneCountInString(str) + n*(utf8.RuneCountInString(replacement)-utf8.RuneCountInString(search))
		if err := ctx.checkStringLength(grown); err != nil {
			return nil, err
		}
	}
	return &String{Value: strings.ReplaceAll(str, search, replacement)}, nil
}

func stringIncludes(ctx *Context, receiver Object, args []Object) (Object, error) {
	sub, err := stringArg("includes", args, 0)
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(strings.Contains(receiver.(*String).Value, sub)), nil
}

func stringStartsWith(ctx *Context, receiver Object, args []Object) (Object, error) {
	prefix, err := stringArg("startsWith", args, 0)
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(strings.HasPrefix(receiver.(*String).Value, prefix)), nil
}

func stringEndsWith(ctx *Context, receiver Object, args []Object) (Object, error) {
	suffix, err := stringArg("endsWith", args, 0)
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(strings.HasSuffix(receiver.(*String).Value, suffix)), nil
}

func stringIndexOf(ctx *Context, receiver Object, args []Object) (Object, error) {
	sub, err := stringArg("indexOf", args, 0)
	if err != nil {
		return nil, err
	}
	str := receiver.(*String).Value
	i := strings.Index(str, sub)
	if i < 0 {
		return &Number{Value: -1}, nil
	}
	return &Number{Value: float64(utf8.RuneCountInString(str[:i]))}, nil
}

func stringSubstring(ctx *Context, receiver Object, args []Object) (Object, error) {
	runes := []rune(receiver.(*String).Value)
	start, err := wholeArg("substring", args, 0)
	if err != nil {
		return nil, err
	}
	end := len(runes)
	if len(args) == 2 {
		if end, err = wholeArg("substring", args, 1); err != nil {
			return nil, err
		}
	}
	start = clampIndex(start, len(runes))
	end = clampIndex(end, len(runes))
	if end < start {
		return &String{Value: ""}, nil
	}
	return &String{Value: string(runes[start:end])}, nil
}

// clampIndex resolves a negative index from the end and clamps to [0, n].
func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}

func stringRepeat(ctx *Context, receiver Object, args []Object) (Object, error) {
	count, err := wholeArg("repeat", args, 0)
	if err != nil {
		return nil, err
	}
	str := receiver.(*String).Value
	if count <= 0 || str == "" {
		return &String{Value: ""}, nil
	}
	// Compare by division: runes*count may overflow.
	runes := utf8.RuneCountInString(str)
	if limit := ctx.Limits.MaxStringLength; limit > 0 && count > limit/runes {
		return nil, serrors.New("LIMIT-0001", map[string]any{
			"Length": fmt.Sprintf("%d x %d", runes, count),
			"Max":    limit,
		})
	}
	if count > math.MaxInt/len(str) {
		return nil, newFormatError("repeat", fmt.Errorf("%d copies of a %d-byte string is too large", count, len(str)))
	}
	if err := ctx.checkStringLength(runes * count); err != nil {
		return nil, err
	}
	return &String{Value: strings.Repeat(str, count)}, nil
}

func stringToNumber(ctx *Context, receiver Object, args []Object) (Object, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(receiver.(*String).Value), 64)
	if err != nil {
		return nil, newFormatError("number", err)
	}
	return &Number{Value: f}, nil
}

func stringToDate(ctx *Context, receiver Object, args []Object) (Object, error) {
	return parseDateString(receiver.(*String).Value)
}

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

func stringMarkdown(ctx *Context, receiver Object, args []Object) (Object, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(receiver.(*String).Value), &buf); err != nil {
		return nil, newFormatError("markdown", err)
	}
	if err := ctx.checkStringLength(utf8.RuneCount(buf.Bytes())); err != nil {
		return nil, err
	}
	return &String{Value: buf.String()}, nil
}
