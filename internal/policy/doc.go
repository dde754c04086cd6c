// Package policy decides when a batch buffer should be drained.
//
// Two families of policies exist:
//
//   - Eager policies ([FlushPolicy]) are evaluated after every insert and
//     answer "should this insert flush the buffer now?". [CountPolicy] fires
//     when the buffer holds a full batch, [ImmediatePolicy] fires when the
//     inserted request asks for it, and [AnyOf] combines variants.
//   - Interval policies ([IntervalPolicy]) are consulted by the scheduler to
//     pick the delay before the next time-based flush. [FixedInterval] always
//     returns the configured delay, [AdaptiveInterval] follows the observed
//     arrival rate within a floor and a ceiling.
//
// Every policy is a pure function of the state it is given.
package policy
