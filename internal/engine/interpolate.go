package engine

import (
	"maps"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

// Interpolate substitutes {name} with args[name]. Unknown names are left as-is.
func Interpolate(text string, args map[string]string) string {
	if len(args) == 0 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := args[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// mentions reports whether text has a placeholder bound in args.
func mentions(text string, args map[string]string) bool {
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if _, ok := args[m[1]]; ok {
			return true
		}
	}
	return false
}

// mergeArgs layers substitution maps; later maps win. Returns nil when empty.
func mergeArgs(layers ...map[string]string) map[string]string {
	var out map[string]string
	for _, l := range layers {
		if len(l) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(l))
		}
		maps.Copy(out, l)
	}
	return out
}
