// Package renderables converts decoded i3df sectors into draw-ready
// collections.
//
// Each collection is a struct of arrays: vectors are stored as three
// consecutive float32 values and colors as four bytes, so a collection can be
// uploaded as-is into instanced vertex attributes. File primitives that have
// no direct shader counterpart are decomposed; a closed cylinder, for
// example, becomes one Cone and two Circles.
//
// General cylinders and solid general cones are not converted. They are
// counted in Sector.Unconverted so callers can report the loss.
package renderables
