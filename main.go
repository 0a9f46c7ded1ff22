package main

import "hospital-app-server/cmd"

func main() {
	cmd.Execute()
}
