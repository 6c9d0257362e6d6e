// Package dit enables data independent timing (DIT) for security-sensitive
// machine functions.
//
// A function carrying the dit-protected attribute is rewritten so that the DIT
// bit of PSTATE is set once its stack frame has been constructed (or on entry,
// for functions without a prologue), and restored from its saved value before
// the stack frame is torn down. Each enable sequence is followed by full data
// and instruction synchronization barriers, so no subsequent instruction may
// execute before DIT is in effect.
//
// The transformation does not verify that the function body is itself
// constant time. It is not idempotent; running it on its own output inserts
// further enable sequences.
//
// Known limitation: the saved DIT state is held in a reserved scratch register
// (X14 by default) between the enable and disable sequences. Instructions of
// the protected region that write this register clobber the saved state; Run
// only warns about instructions referring to the register.
package dit
