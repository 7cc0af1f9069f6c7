package di

import (
	"github.com/quipo/statsd"
)

// StatsDClient returns the statsd client used to publish metrics, or nil if
// no statsd address is configured.
func (con *Container) StatsDClient() statsd.Statsd {
	value := con.get(
		"statsd.client",
		func() (interface{}, error) {
			config := con.Config()
			if config.StatsDAddress == "" {
				return (statsd.Statsd)(nil), nil
			}

			client := statsd.NewStatsdClient(
				config.StatsDAddress,
				config.StatsDPrefix,
			)

			if err := client.CreateSocket(); err != nil {
				return nil, err
			}

			if config.StatsDInterval == 0 {
				return client, nil
			}

			return statsd.NewStatsdBuffer(config.StatsDInterval, client), nil
		},
		func(value interface{}) error {
			if client, ok := value.(statsd.Statsd); ok && client != nil {
				return client.Close()
			}
			return nil
		},
	)

	if value == nil {
		return nil
	}

	return value.(statsd.Statsd)
}
