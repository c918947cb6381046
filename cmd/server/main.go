package main

import "github.com/eleven-am/shelfscan/internal/bootstrap"

func main() {
	bootstrap.Run()
}
