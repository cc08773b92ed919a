package depot

import (
	"os"
	"reflect"
	"regexp"
	"strings"
	"sync"

	goreflect "github.com/goccy/go-reflect"
)

// Class describes a component type known to the registry.
//
// A class is identified by the module path that declares it and its name.
// Classes for Go types are obtained with ClassOf or Define; classes produced
// by code generation may be built literally:
//
//	var UserRepo = &depot.Class{
//	    Name:   "UserRepo",
//	    Source: "internal/users/repo.go",
//	    New:    NewUserRepo,
//	}
type Class struct {
	// Name is the declared name of the class.
	Name string

	// Source is the declaring module path, either a file path or an import path.
	Source string

	// Type is the Go type instances of the class have. Optional for generated classes.
	Type reflect.Type

	// New constructs an instance. It may take a leading context.Context followed by
	// one parameter per constructor dependency, and returns T or (T, error).
	// When nil, struct types are allocated with their zero value.
	New any

	// Proxy builds a forwarding value around a live reference. Only used when
	// the registry runs in live-reload mode and this class is a resolution target.
	Proxy ProxyFactory

	once   sync.Once
	id     string
	tidOne sync.Once
	tid    uintptr
}

// ID returns the stable identity of the class, computed once.
func (c *Class) ID() string {
	c.once.Do(func() {
		c.id = deriveID(c.Source, c.Name)
	})

	return c.id
}

// String implements fmt.Stringer.
func (c *Class) String() string {
	return c.ID()
}

// typeID returns the runtime type identity of the class, or 0 when the class has no Go type.
func (c *Class) typeID() uintptr {
	if c.Type == nil {
		return 0
	}

	c.tidOne.Do(func() {
		c.tid = goreflect.TypeID(reflect.Zero(reflect.PointerTo(c.Type)).Interface())
	})

	return c.tid
}

// typeName returns a human readable type description.
func (c *Class) typeName() string {
	if c.Type == nil {
		return c.Name
	}

	return c.Type.String()
}

// abstract reports whether the class can not be instantiated by default.
func (c *Class) abstract() bool {
	return c.New == nil && (c.Type == nil || indirect(c.Type).Kind() != reflect.Struct)
}

// =============================================================================
// IDENTITY DERIVATION
// =============================================================================

var (
	sourceRootMu sync.RWMutex
	sourceRoot   = initialSourceRoot()

	srcSegment  = "/src/"
	extPattern  = regexp.MustCompile(`\.(go|ts|js)$`)
	leadingDots = regexp.MustCompile(`^\.+`)
	slashes     = strings.NewReplacer(`\`, "/")
)

func initialSourceRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	return normalizeRoot(wd)
}

func normalizeRoot(root string) string {
	return strings.TrimRight(slashes.Replace(root), "/")
}

// SetSourceRoot sets the prefix stripped from source paths when deriving identities.
// It defaults to the working directory of the process and must be set before
// any class identity is computed.
func SetSourceRoot(root string) {
	sourceRootMu.Lock()
	defer sourceRootMu.Unlock()

	sourceRoot = normalizeRoot(root)
}

// SourceRoot returns the prefix stripped from source paths.
func SourceRoot() string {
	sourceRootMu.RLock()
	defer sourceRootMu.RUnlock()

	return sourceRoot
}

// relativeSource normalizes a source path relative to the source root.
func relativeSource(path string) string {
	p := slashes.Replace(path)

	if root := SourceRoot(); root != "" {
		if rest, ok := strings.CutPrefix(p, root+"/"); ok {
			return rest
		}
	}

	return strings.TrimLeft(p, "/")
}

// deriveID builds "<dotted.module.path>#<Name>" from a source path and name.
func deriveID(source, name string) string {
	p := slashes.Replace(source)

	if root := SourceRoot(); root != "" {
		if rest, ok := strings.CutPrefix(p, root); ok && (rest == "" || rest[0] == '/') {
			p = rest
		}
	}

	if strings.HasPrefix(p, "src/") {
		p = "/" + p
	}

	p = strings.ReplaceAll(p, srcSegment, "/")
	p = extPattern.ReplaceAllString(p, "")
	p = strings.ReplaceAll(p, "/", ".")
	p = leadingDots.ReplaceAllString(p, "")

	return p + "#" + name
}

// =============================================================================
// CLASS INDEX
// =============================================================================

// classIndex maps Go types to their canonical class so every lookup of the
// same type shares one identity.
type classIndex struct {
	classes map[reflect.Type]*Class
	mu      sync.RWMutex
}

var classes = &classIndex{classes: make(map[reflect.Type]*Class)}

// forType returns the canonical class for t, creating it on first use.
func (x *classIndex) forType(t reflect.Type) *Class {
	x.mu.RLock()
	c, ok := x.classes[t]
	x.mu.RUnlock()

	if ok {
		return c
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if c, ok := x.classes[t]; ok {
		return c
	}

	base := indirect(t)
	name := base.Name()
	if name == "" {
		name = t.String()
	}

	c = &Class{
		Name:   name,
		Source: base.PkgPath(),
		Type:   t,
	}
	x.classes[t] = c

	return c
}

// ClassOf returns the canonical class for the Go type T.
//
// Interface types yield abstract classes that can be used as injection
// targets; struct and pointer-to-struct types can be instantiated.
func ClassOf[T any]() *Class {
	return classes.forType(reflect.TypeFor[T]())
}

// Define returns the canonical class for T with its constructor set to newFn.
// Define is part of registration and must not race with resolution.
func Define[T any](newFn any) *Class {
	c := ClassOf[T]()
	c.New = newFn

	return c
}

// DefineProxy sets the live-reload proxy for the abstraction T.
//
// The wrap function receives a getter for the current delegate and returns a
// value implementing T that forwards every call through that getter.
func DefineProxy[T any](wrap func(current func() T) T) *Class {
	c := ClassOf[T]()
	c.Proxy = ProxyOf(wrap)

	return c
}

func indirect(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}

	return t
}
