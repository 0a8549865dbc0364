package main

import "github.com/loviiin/unmark/services/resolver/cmd"

func main() {
	cmd.Execute()
}
