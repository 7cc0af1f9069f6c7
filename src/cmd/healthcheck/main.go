package main

import (
	"fmt"
	"os"

	"github.com/chrisjchandler/Riffy/src/cmd"
	"github.com/chrisjchandler/Riffy/src/frontend/health"
)

func main() {
	config := cmd.GetConfigFromEnvironment()

	checker := health.HTTPChecker{
		Address: ":" + config.Port,
	}

	status := checker.Check()
	fmt.Println(status.Message)
	if !status.IsHealthy {
		os.Exit(1)
	}
}
