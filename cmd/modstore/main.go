// Package main is the entry point for modstore.
package main

func main() {
	Execute()
}
