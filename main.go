package main

import "github.com/qrave1/ArenaChat/cmd"

func main() {
	cmd.Execute()
}
