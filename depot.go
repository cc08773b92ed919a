// Package depot is a dependency registry: classes register their constructor
// and field dependencies under a stable identity, are published as
// implementations of an abstraction under a qualifier, and are constructed
// lazily as singletons with their whole dependency graph.
//
// A registry moves through two phases. During registration, modules add
// classes with RegisterConstructor, RegisterProperty and FinalizeClass (or
// the Provide and Autowire helpers). Initialize then runs module discovery
// and constructs every auto-create component in priority order. GetInstance
// may be called at any time; it constructs on first request.
//
// In live-reload mode the registry hands out rebindable handles, and
// finalizing a class again swaps the implementation behind existing handles.
package depot

import (
	"github.com/xraph/go-utils/di"
)

// Dep is the dependency spec reported by Graph and Inspect.
type Dep = di.Dep

// Service is implemented by components started right after construction.
type Service = di.Service
