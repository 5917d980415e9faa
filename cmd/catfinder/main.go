// Command catfinder serves the cat breed browser: breed pages backed by the
// remote breed catalog, user accounts and favorite breeds.
package main

import (
	"log"

	"github.com/patric-chuzhbe/catfinder/internal/app"
)

func run() error {
	theApp, err := app.New()
	if err != nil {
		return err
	}
	defer theApp.Close()

	return theApp.Run()
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
