package main

import (
	"os"

	"github.com/gyaneshwarpardhi/pgparser/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
