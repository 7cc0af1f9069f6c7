package di

import "github.com/chrisjchandler/Riffy/src/cmd"

// Config returns the application configuration, read from the environment.
func (con *Container) Config() *cmd.Config {
	return con.get(
		"config",
		func() (interface{}, error) {
			return cmd.GetConfigFromEnvironment(), nil
		},
		nil,
	).(*cmd.Config)
}
