// Package viz is the terminal drive surface for the lane-keeping loop,
// built on Bubble Tea.
//
// The menu shows the current weights and the gain they solve to; a run
// draws the road top-down on a braille [Canvas] next to a readout and a
// trace of the lateral error.
//
// # Key Bindings
//
//	Space/Enter - Start a run (menu)
//	Up/Down     - Raise/lower q
//	Right/Left  - Raise/lower r
//	R           - Restart the run
//	Esc         - Back to the menu
//	T           - Cycle color themes
//	Q           - Quit
package viz
