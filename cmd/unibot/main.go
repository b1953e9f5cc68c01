// Command unibot answers institutional questions from the terminal using the
// same services as the API server.
package main

import (
	"fmt"
	"os"

	"github.com/unibot/backend/cmd/unibot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
