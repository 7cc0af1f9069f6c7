package di

import (
	"github.com/go-redis/redis/v8"
)

// RedisClient returns the redis client used to share health state between
// proxy instances, or nil if no redis address is configured.
func (con *Container) RedisClient() *redis.Client {
	value := con.get(
		"redis.client",
		func() (interface{}, error) {
			config := con.Config()
			if config.RedisAddress == "" {
				return (*redis.Client)(nil), nil
			}

			return redis.NewClient(&redis.Options{
				Addr: config.RedisAddress,
			}), nil
		},
		func(value interface{}) error {
			if client, ok := value.(*redis.Client); ok && client != nil {
				return client.Close()
			}
			return nil
		},
	)

	return value.(*redis.Client)
}
