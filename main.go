package main

import "github.com/RyanBlaney/genre-mood-classifier/cmd"

func main() {
	cmd.Execute()
}
