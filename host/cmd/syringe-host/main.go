// syringe-host drives a syringe controller from a Linux host: on local
// GPIO, against a simulated plunger, or over a serial link to a board.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env supplies flag defaults; a missing file is not an error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
