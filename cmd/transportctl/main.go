package main

import "github.com/campus-shuttle/transport-api/cmd/transportctl/cmd"

func main() {
	cmd.Execute()
}
