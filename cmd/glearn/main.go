package main

import "github.com/gamelearn/analytics/cmd/glearn/commands"

func main() {
	commands.Execute()
}
