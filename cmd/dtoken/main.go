// Package main implements the dtoken CLI.
package main

func main() {
	Execute()
}
