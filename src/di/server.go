package di

import (
	"github.com/chrisjchandler/Riffy/src/frontend"
	fehealth "github.com/chrisjchandler/Riffy/src/frontend/health"
	"github.com/chrisjchandler/Riffy/src/proxy"
	"github.com/chrisjchandler/Riffy/src/statuspage"
)

// StatusPageWriter returns the writer used to render gateway error pages.
func (con *Container) StatusPageWriter() statuspage.Writer {
	return con.get(
		"statuspage.writer",
		func() (interface{}, error) {
			return &statuspage.TemplateWriter{}, nil
		},
		nil,
	).(statuspage.Writer)
}

// Forwarder returns the connection forwarder used to relay requests.
func (con *Container) Forwarder() *proxy.Forwarder {
	return con.get(
		"proxy.forwarder",
		func() (interface{}, error) {
			config := con.Config()
			return proxy.NewForwarder(
				config.ConnectTimeout,
				config.ResponseTimeout,
				con.Logger(),
			), nil
		},
		nil,
	).(*proxy.Forwarder)
}

// Server returns the front-end HTTP server.
func (con *Container) Server() *frontend.Server {
	return con.get(
		"frontend.server",
		func() (interface{}, error) {
			config := con.Config()

			return &frontend.Server{
				BindAddress:       ":" + config.Port,
				Pool:              con.Pool(),
				Forwarder:         con.Forwarder(),
				Observer:          con.HealthObserver(),
				HealthCheck:       &fehealth.Endpoint{Pool: con.Pool()},
				StatusPageWriter:  con.StatusPageWriter(),
				Stats:             con.StatsDClient(),
				UseProxyProtocol:  config.ProxyProtocol,
				IdleTimeout:       config.IdleTimeout,
				ReadHeaderTimeout: config.ReadHeaderTimeout,
				Logger:            con.Logger(),
			}, nil
		},
		nil,
	).(*frontend.Server)
}
