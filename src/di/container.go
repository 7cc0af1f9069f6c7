package di

import "sync"

// Container wires together the root-level application dependencies. Values
// are constructed lazily and at most once; constructors that fail panic,
// which aborts startup.
type Container struct {
	values  map[string]interface{}
	closers []func() error
	mutex   sync.RWMutex
}

// Close cleans up any resources used by dependencies.
func (con *Container) Close() {
	con.mutex.Lock()
	defer con.mutex.Unlock()

	closers := con.closers
	con.values = nil
	con.closers = nil

	for _, fn := range closers {
		err := fn()
		if err != nil {
			panic(err)
		}
	}
}

func (con *Container) get(
	name string,
	initialize func() (interface{}, error),
	close func(value interface{}) error,
) interface{} {
	con.mutex.RLock()
	value, ok := con.values[name]
	con.mutex.RUnlock()

	if ok {
		return value
	}

	// Construct outside the lock; initializers resolve their own dependencies
	// through the container, which re-enters get.
	value, err := initialize()
	if err != nil {
		panic(err)
	}

	con.mutex.Lock()
	defer con.mutex.Unlock()

	if existing, ok := con.values[name]; ok {
		// Another goroutine won the construction race; release the duplicate.
		if close != nil {
			close(value)
		}
		return existing
	}

	if con.values == nil {
		con.values = map[string]interface{}{}
	}
	con.values[name] = value

	if close != nil {
		v := value
		con.closers = append(con.closers, func() error {
			return close(v)
		})
	}

	return value
}
