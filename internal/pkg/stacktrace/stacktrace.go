// Package stacktrace trims raw goroutine stacks down to the frames that belong
// to this module.
package stacktrace

import (
	"bufio"
	"bytes"
	"strings"
)

const marker = "/internal/"

// InternalPaths returns the "internal/<pkg>/<file>.go:<line>" locations found
// in a stack produced by runtime/debug.Stack, outermost frame last.
func InternalPaths(stack []byte) []string {
	var paths []string

	sc := bufio.NewScanner(bytes.NewReader(stack))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if path, ok := internalFrame(line); ok {
			paths = append(paths, path)
		}
	}

	return paths
}

// internalFrame extracts the location from a file line such as
// "/src/app/internal/otp/usecase/verify.go:42 +0x1d".
func internalFrame(line string) (string, bool) {
	dot := strings.Index(line, ".go:")
	if dot == -1 {
		return "", false
	}

	idx := strings.Index(line[:dot], marker)
	if idx == -1 {
		return "", false
	}

	loc := line[idx+1:]
	if sp := strings.IndexByte(loc, ' '); sp != -1 {
		loc = loc[:sp]
	}

	return loc, true
}
