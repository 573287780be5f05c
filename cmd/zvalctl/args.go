package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/zend-abi/engine"
	"github.com/wippyai/zend-abi/zval"
)

// parseArgs converts a comma-separated list into values. Quoted items are
// always strings.
func parseArgs(e *engine.Engine, s string) ([]zval.Zval, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []zval.Zval
	for _, item := range strings.Split(s, ",") {
		v, err := parseArg(e, strings.TrimSpace(item))
		if err != nil {
			releaseArgs(e, out)
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseArg(e *engine.Engine, s string) (zval.Zval, error) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return zval.FromString(e, u)
		}
		return zval.FromString(e, s[1:len(s)-1])
	}
	switch strings.ToLower(s) {
	case "null":
		return zval.New(e), nil
	case "true":
		return zval.FromBool(e, true), nil
	case "false":
		return zval.FromBool(e, false), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return zval.FromLong(e, n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return zval.FromDouble(e, f), nil
	}
	return zval.FromString(e, s)
}

func releaseArgs(e *engine.Engine, args []zval.Zval) {
	for _, a := range args {
		if a.IsString() {
			e.ReleaseString(e.Profile().PtrFromBits(a.Raw().Value))
		}
	}
}

func renderArgs(args []zval.Zval) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func sortedFields(offs map[string]uint32) []string {
	names := make([]string, 0, len(offs))
	for n := range offs {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if offs[names[i]] != offs[names[j]] {
			return offs[names[i]] < offs[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
