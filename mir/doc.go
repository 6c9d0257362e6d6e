// Package mir provides an in-memory representation of machine functions; a
// function is an ordered list of basic blocks (its layout order), each of which
// is an ordered list of target instructions.
//
// Instructions carry the frame-setup and frame-destroy flags of an earlier
// prologue/epilogue insertion phase, and a debug location that is kept intact
// by every transformation of this module.
package mir
