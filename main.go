package main

import "github.com/KaramelBytes/skyscope/cmd"

func main() {
	cmd.Execute()
}
