package di

import (
	"github.com/chrisjchandler/Riffy/src/health"
)

// HealthObserver returns the observer that tracks upstream failures. With no
// failure threshold configured it is a no-op, preserving pure round-robin
// selection. With a redis address configured the failure counts are shared
// between proxy instances.
func (con *Container) HealthObserver() health.Observer {
	return con.get(
		"health.observer",
		func() (interface{}, error) {
			config := con.Config()

			if config.HealthFailureThreshold <= 0 {
				return health.NoopObserver{}, nil
			}

			if client := con.RedisClient(); client != nil {
				return &health.RedisTracker{
					Logger:    con.Logger(),
					Client:    client,
					Threshold: config.HealthFailureThreshold,
					Cooldown:  config.HealthCooldown,
				}, nil
			}

			return &health.Tracker{
				Threshold: config.HealthFailureThreshold,
				Cooldown:  config.HealthCooldown,
			}, nil
		},
		nil,
	).(health.Observer)
}
