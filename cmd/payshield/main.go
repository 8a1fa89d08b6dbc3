package main

import "payshield/cmd/payshield/cmd"

func main() {
	cmd.Execute()
}
