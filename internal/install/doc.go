// Package install drives a guest from definition to a running domain.
//
// An Installer strategy knows where the operating system comes from:
// install media, a container bootstrap, an existing disk image or the
// network. The Controller runs the lifecycle around it:
//
//	Idle -> Preparing -> DocumentSynthesized -> Created -> [AwaitingContinuation] -> Completed
//
// with Failed reachable from every non-terminal state. Control-plane
// failures after the domain was created trigger one pass of compensating
// actions (destroy, then undefine) whose own errors are logged and
// dropped so the triggering error is the one returned.
package install
