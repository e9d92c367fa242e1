package main

import "food-marketplace-api/cmd"

func main() {
	cmd.Execute()
}
