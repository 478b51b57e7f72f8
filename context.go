package csp

import "context"

// Context is an alias permitting you to refer to csp.Context if you so desire.
type Context = context.Context

// ctxKey is a magic type used as a unique key for ctx.Value attachments.
//
// We have exactly one such key and store all further information in a struct underneath it.
// This approach is for sympathy to the internals of the context value attachment system --
// it performs an allocation and forms roughly a sort of long linked list for each
// additional attachment, so we reduce overhead by putting all value attachments
// we know about into a single attachment.
type ctxKey = struct{}

// ctxInfo is everything we attach to a Context.
//
// The select statement in here is what makes channel operations "register instead of block":
// Select hands its body a Context with the statement attached,
// and every Push or Receive called with that Context finds it here.
// Nothing about a select is ever stored per-goroutine.
type ctxInfo struct {
	task      *boundTask
	taskPath  string
	statement *statement
}

func readCtxInfo(ctx Context) ctxInfo {
	if ctx == nil {
		return ctxInfo{}
	}
	v := ctx.Value(ctxKey{})
	if v == nil {
		return ctxInfo{}
	}
	return v.(ctxInfo)
}

// appendCtxInfo attaches task information, replacing any previous task info.
// An active select statement is deliberately not carried over:
// a task launched from inside a select body is not part of that select.
func appendCtxInfo(ctx Context, info ctxInfo) Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

func withStatement(ctx Context, s *statement) Context {
	info := readCtxInfo(ctx)
	info.statement = s
	return context.WithValue(ctx, ctxKey{}, info)
}

// selectingIn returns the select statement that channel operations using this
// Context should register with, or nil if they should block directly.
//
// A statement that has already finished (its callback is running, or it returned)
// no longer intercepts anything, so a Context leaked out of a select body
// behaves like a plain one.
func selectingIn(ctx Context) *statement {
	s := readCtxInfo(ctx).statement
	if s == nil || s.finished.Load() {
		return nil
	}
	return s
}

// CtxTaskName returns the short name of the task running with this Context,
// or "[unmanaged]" if the Context didn't come from a task launched by this package.
func CtxTaskName(ctx Context) string {
	info := readCtxInfo(ctx)
	if info.task == nil {
		return "[unmanaged]"
	}
	return info.task.name
}

// CtxTaskPath returns the slash-separated path of task names leading to the
// task running with this Context, or the empty string if there's none.
func CtxTaskPath(ctx Context) string {
	return readCtxInfo(ctx).taskPath
}
