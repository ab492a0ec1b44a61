package main

import "github.com/KMcClain23/WarriorMomma/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
