package main

import "github.com/MeKo-Tech/pricetag/cmd/pricetag/cmd"

func main() {
	cmd.Execute()
}
