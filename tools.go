//go:build tools
// +build tools

// Package tools pins the lint and test runner binaries used by sci so that
// `go install` picks the versions in go.mod.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/onsi/ginkgo/ginkgo"
)
