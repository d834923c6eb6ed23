package main

import (
	"github.com/shouni/go-recipe-roulette/cmd"
)

func main() {
	cmd.Execute()
}
