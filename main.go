package main

import (
	"os"

	"postroom/service"
)

func main() {
	os.Exit(service.Execute(os.Args[1:]))
}
