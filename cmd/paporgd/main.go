// Command paporgd watches one or more document sources, categorizes
// and files incoming documents per a rule set, and exposes
// administrative operations over the resulting job history.
package main

func main() {
	Execute()
}
