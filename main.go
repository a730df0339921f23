package main

import "github.com/yuriiter/bixistrava/cmd"

func main() {
	cmd.Execute()
}
