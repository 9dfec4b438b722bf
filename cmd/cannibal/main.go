package main

import (
	"os"

	"github.com/usrssssx/cannibal-ai/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
