package main

import "upload-ai/cmd"

func main() {
	cmd.Execute()
}
