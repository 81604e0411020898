// Command herd routes work through an agent organization and tracks it on a
// shared task board.
package main

func main() {
	Execute()
}
