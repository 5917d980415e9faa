package main

import (
	"fmt"
	exit "os"
)

func helper() {
	exit.Exit(2)
}

func main() {
	defer fmt.Println("cleanup")

	func() {
		exit.Exit(3) // want "avoid using os.Exit in main.main"
	}()

	helper()
	exit.Exit(1) // want "avoid using os.Exit in main.main"
}
