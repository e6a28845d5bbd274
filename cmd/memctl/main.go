// Command memctl demonstrates and benchmarks the memkit allocators.
package main

func main() {
	execute()
}
