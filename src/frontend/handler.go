package frontend

import "net/http"

// Handler provides the server's http.Handler implementation, routing requests
// either to the health-check interceptor or to the proxy dispatcher.
type Handler struct {
	Proxy       http.Handler
	HealthCheck ConditionalHandler
}

func (handler *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if handler.HealthCheck != nil && handler.HealthCheck.CanHandle(request) {
		handler.HealthCheck.ServeHTTP(writer, request)
	} else {
		handler.Proxy.ServeHTTP(writer, request)
	}
}
