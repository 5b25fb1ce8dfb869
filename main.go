package main

import "github.com/Harshit-Dhanwalkar/NexusView/cmd"

func main() {
	cmd.Execute()
}
