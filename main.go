// Package main is the entry point for the tidal-grabber application.
package main

import "github.com/oshokin/tidal-grabber/cmd"

func main() {
	cmd.Execute()
}
