// Package viz is the terminal surface of the simulator, built on Bubble Tea.
//
// [Model] polls the engine's published snapshots at a fixed frame rate and
// draws three panels: the cluster diagram on a braille [Canvas], the
// algorithm stage list, and the comparison bar chart.
//
// # Key Bindings
//
//	Space - Pause/Resume both clocks
//	M, C  - Compare on MNIST or CIFAR10
//	Tab   - Next dataset
//	T     - Cycle color themes
//	?     - Show help
//	Q     - Quit
package viz
