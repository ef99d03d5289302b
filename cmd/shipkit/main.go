package main

import "shipkit/internal/shipkit"

func main() {
	shipkit.Main()
}
