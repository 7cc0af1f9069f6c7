package health

// Status holds basic health-check information.
type Status struct {
	IsHealthy bool
	Message   string
}
