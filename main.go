package main

import "github.com/oddsmill/oddsmill/cmd"

func main() {
	cmd.Execute()
}
