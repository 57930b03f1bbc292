package main

import "github.com/KaramelBytes/datafix-cli/cmd"

func main() {
	cmd.Execute()
}
