// Package analysis characterizes recorded closed-loop runs.
//
//   - [Portrait]: the error-state trajectory in a 2D phase plane
//   - [PowerSpectrum] and [DominantFrequency]: frequency content of a
//     signal such as the steering command, to spot weaving
//
// A well-tuned lane keeper spirals into the origin of the (e, θ) plane
// and puts little steering power above a few hertz.
package analysis
