// Command parbuild runs build graphs described in YAML with bounded
// parallelism.
//
//	parbuild plan std
//	parbuild run std -j 8
//	parbuild version
package main

import (
	"fmt"
	"os"

	"github.com/kbukum/parbuild/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "parbuild:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 130 for an interrupted
// build, 2 for bad input, 1 otherwise.
func exitCode(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeAborted:
		return 130
	case errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidGraph, errors.ErrCodeCycleDetected, errors.ErrCodeNotFound:
		return 2
	default:
		return 1
	}
}
