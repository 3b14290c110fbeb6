//go:build glowdebug

package glow

import "fmt"

func precondition(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("glow: "+format, args...))
	}
}
