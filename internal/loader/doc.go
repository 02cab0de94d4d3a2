// Package loader implements the require operation of a CommonJS module
// system.
//
// A Loader owns a Cache of modules keyed by canonical id. On a miss it
// creates the Module, inserts it into the cache and only then runs the
// module body, so a body that (directly or transitively) requires its own
// id sees the partially populated exports instead of recursing.
//
// The loader never evaluates source itself. An Engine evaluates bodies and
// parses JSON artifacts; a Resolver maps ids to files. Both are supplied
// by the owning environment.
//
// # Errors
//
//   - ModuleNotFoundError: every load path missed. The message is exactly
//     "no such module '<id>'" with the id as the caller wrote it.
//   - modid.PathUnderflowError: a relative id climbed above its context.
//   - ScriptEvaluationError: a module body threw, or a JSON artifact did
//     not parse. Carries the module path.
//
// All three unwind through every enclosing require. A module whose body
// failed is evicted from the cache, so a later require of the same id
// resolves and executes it again.
package loader
