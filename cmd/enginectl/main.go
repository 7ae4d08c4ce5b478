// Command enginectl inspects replays, validates ability registries and runs
// scripted scenarios against the effect engine.
package main

func main() {
	Execute()
}
