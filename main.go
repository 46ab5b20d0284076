package main

import "toot-importer/cmd"

func main() {
	cmd.Execute()
}
