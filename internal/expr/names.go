package expr

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// generatedPrefix starts every generated result name. Variables may not
// use it.
const generatedPrefix = "_gen_"

// NameGenerator issues result names for expression statements. Names
// issued by one generator never repeat.
type NameGenerator interface {
	Next() string
}

// Counter generates names from a monotonic counter: _gen_00000001,
// _gen_00000002, ...
type Counter struct {
	last atomic.Uint64
}

// NewCounter returns a counter starting at 1.
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Next() string {
	return fmt.Sprintf(generatedPrefix+"%08d", c.last.Add(1))
}

type uuidNames struct{}

// UUIDNames returns a generator of random names such as
// _gen_9f1c1b0e2a3d4c5b8e7f6a5b4c3d2e1f. Names are unique across
// compilations but not reproducible.
func UUIDNames() NameGenerator {
	return uuidNames{}
}

func (uuidNames) Next() string {
	return generatedPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
