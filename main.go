package main

import "github.com/groovy-tools/gls/cmd"

func main() {
	cmd.Execute()
}
