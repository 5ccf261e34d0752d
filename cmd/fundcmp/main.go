package main

import (
	"os"

	"github.com/wonny/fundcompare/backend/cmd/fundcmp/commands"
)

// main is the entry point for the fund comparison CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/fundcmp [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
