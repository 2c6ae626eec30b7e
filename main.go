package main

import (
	"shop-dedup/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
