package model

import "strings"

// BaseTypeName reduces a type as written to its simple name:
// "System.EventHandler<Address>?" becomes "EventHandler".
func BaseTypeName(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "<"); idx != -1 {
		raw = raw[:idx]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "?")
	raw = strings.TrimSuffix(raw, "[]")
	if idx := strings.LastIndex(raw, "::"); idx != -1 {
		raw = raw[idx+2:]
	}
	if idx := strings.LastIndex(raw, "."); idx != -1 {
		raw = raw[idx+1:]
	}
	return strings.TrimSpace(raw)
}

// TypeArguments returns the top-level generic arguments of a type as written.
func TypeArguments(raw string) []string {
	open := strings.Index(raw, "<")
	close := strings.LastIndex(raw, ">")
	if open == -1 || close <= open {
		return nil
	}
	inner := raw[open+1 : close]

	var args []string
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	return args
}
