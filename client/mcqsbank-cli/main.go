package main

import "github.com/aimankahim/mcqsbank/client/mcqsbank-cli/cmd"

func main() {
	cmd.Execute()
}
