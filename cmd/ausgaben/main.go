// Command ausgaben records expenses from one-line quick entries and reports
// how the month's spending tracks against category budgets.
package main

func main() {
	Execute()
}
