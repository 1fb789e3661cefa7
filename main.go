package main

import "github.com/qrave1/MeetPoint/cmd"

func main() {
	cmd.Execute()
}
