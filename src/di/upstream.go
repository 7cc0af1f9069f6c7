package di

import (
	"github.com/chrisjchandler/Riffy/src/upstream"
)

// Pool returns the round-robin upstream pool, built from the configured
// upstream list. Construction fails if the list is empty or contains a
// malformed entry.
func (con *Container) Pool() *upstream.Pool {
	return con.get(
		"upstream.pool",
		func() (interface{}, error) {
			targets, err := upstream.ParseList(con.Config().UpstreamServers)
			if err != nil {
				return nil, err
			}

			logger := con.Logger()
			for _, target := range targets {
				logger.Printf("Added upstream '%s' (%s)", target.Address, target.Description)
			}

			return upstream.NewPool(targets)
		},
		nil,
	).(*upstream.Pool)
}
