package main

import "github.com/rotblauer/trailhud/cmd"

func main() {
	cmd.Execute()
}
