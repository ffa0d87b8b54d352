// Copyright (c) 2024 RoseLoverX

package utils

import (
	"runtime"
	"strings"
)

// Recover is deferred around user supplied callbacks so a panicking handler
// cannot take the update loop down with it.
func Recover(log *Logger, where string) {
	if r := recover(); r != nil {
		log.WithField("stack", shortStack()).Error("[%s] recovered from panic: %v", where, r)
	}
}

func shortStack() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	lines := strings.Split(string(buf[:n]), "\n")
	if len(lines) > 12 {
		lines = lines[:12]
	}
	return strings.Join(lines, " | ")
}

// Dedupe returns vals with later duplicates removed, order kept.
func Dedupe[T comparable](vals []T) []T {
	seen := make(map[T]struct{}, len(vals))
	out := make([]T, 0, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
