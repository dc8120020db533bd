package log

import (
	"runtime"
	"strconv"
	"strings"
)

// CallStack formats up to depth callers, starting skip frames above the
// caller of CallStack, as "file:line <- file:line". Frames inside the
// runtime are left out.
func CallStack(skip int, depth int) string {
	pcs := make([]uintptr, depth+8)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var parts []string
	for len(parts) < depth {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && frame.File != "" {
			parts = append(parts, frame.File+":"+strconv.Itoa(frame.Line))
		}
		if !more {
			break
		}
	}
	if len(parts) == 0 {
		return "?"
	}
	return strings.Join(parts, " <- ")
}
