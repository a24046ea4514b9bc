package main

import "github.com/Alijeyrad/notifyhub/cmd"

func main() {
	cmd.Execute()
}
