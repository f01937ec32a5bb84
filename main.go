package main

import "dealercrm/cmd"

func main() {
	cmd.Execute()
}
