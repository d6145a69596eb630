package main

import (
	"os"

	"github.com/scim-bridge/scim-bridge/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
