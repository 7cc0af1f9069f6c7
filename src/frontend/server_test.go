package frontend_test

import (
	"context"
	"io"
	"io/ioutil"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chrisjchandler/Riffy/src/frontend"
	fehealth "github.com/chrisjchandler/Riffy/src/frontend/health"
	"github.com/chrisjchandler/Riffy/src/health"
	"github.com/chrisjchandler/Riffy/src/proxy"
	"github.com/chrisjchandler/Riffy/src/upstream"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// recordingObserver captures outcome notifications for inspection.
type recordingObserver struct {
	mutex     sync.Mutex
	failures  []string
	successes []string
}

func (o *recordingObserver) IsEligible(*upstream.Target) bool { return true }

func (o *recordingObserver) RecordSuccess(_ context.Context, target *upstream.Target) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.successes = append(o.successes, target.Address)
}

func (o *recordingObserver) RecordFailure(_ context.Context, target *upstream.Target) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.failures = append(o.failures, target.Address)
}

var _ = Describe("Server", func() {
	var backends []*httptest.Server

	// backend starts an upstream server that identifies itself in each
	// response body.
	backend := func(id string) *upstream.Target {
		server := httptest.NewServer(http.HandlerFunc(
			func(writer http.ResponseWriter, request *http.Request) {
				io.WriteString(writer, id)
			},
		))
		backends = append(backends, server)

		u, err := url.Parse(server.URL)
		Expect(err).ShouldNot(HaveOccurred())

		return &upstream.Target{Description: id, Address: u.Host}
	}

	backendFunc := func(id string, handler http.HandlerFunc) *upstream.Target {
		server := httptest.NewServer(handler)
		backends = append(backends, server)

		u, err := url.Parse(server.URL)
		Expect(err).ShouldNot(HaveOccurred())

		return &upstream.Target{Description: id, Address: u.Host}
	}

	// deadBackend returns a target whose port was bound and then released.
	deadBackend := func() *upstream.Target {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ShouldNot(HaveOccurred())

		address := listener.Addr().String()
		listener.Close()

		return &upstream.Target{Description: "dead", Address: address}
	}

	newServer := func(targets ...*upstream.Target) *frontend.Server {
		pool, err := upstream.NewPool(targets)
		Expect(err).ShouldNot(HaveOccurred())

		logger := log.New(GinkgoWriter, "", 0)

		return &frontend.Server{
			Pool:      pool,
			Forwarder: proxy.NewForwarder(time.Second, 500*time.Millisecond, logger),
			Logger:    logger,
		}
	}

	get := func(front *httptest.Server, path string) (int, string) {
		response, err := http.Get(front.URL + path)
		Expect(err).ShouldNot(HaveOccurred())
		defer response.Body.Close()

		content, err := ioutil.ReadAll(response.Body)
		Expect(err).ShouldNot(HaveOccurred())

		return response.StatusCode, string(content)
	}

	AfterEach(func() {
		for _, server := range backends {
			server.Close()
		}
		backends = nil
	})

	It("distributes requests across the pool in order", func() {
		subject := newServer(backend("a"), backend("b"))
		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		var bodies []string
		for i := 0; i < 4; i++ {
			_, body := get(front, "/")
			bodies = append(bodies, body)
		}

		Expect(bodies).To(Equal([]string{"a", "b", "a", "b"}))
	})

	It("retries the next upstream when one is unreachable", func() {
		subject := newServer(deadBackend(), backend("live"))
		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		for i := 0; i < 2; i++ {
			statusCode, body := get(front, "/")
			Expect(statusCode).To(Equal(http.StatusOK))
			Expect(body).To(Equal("live"))
		}
	})

	It("returns 502 when every upstream is unreachable", func() {
		subject := newServer(deadBackend(), deadBackend())
		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		statusCode, body := get(front, "/")

		Expect(statusCode).To(Equal(http.StatusBadGateway))
		Expect(body).To(ContainSubstring("could not be contacted"))
	})

	It("returns 504 when the upstream accepts connections but never responds", func() {
		blocker := make(chan struct{})
		defer close(blocker)

		subject := newServer(backendFunc("slow", func(http.ResponseWriter, *http.Request) {
			<-blocker
		}))
		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		statusCode, body := get(front, "/")

		Expect(statusCode).To(Equal(http.StatusGatewayTimeout))
		Expect(body).To(ContainSubstring("did not respond in a timely manner"))
	})

	It("serves other clients while an upstream is stalled", func() {
		blocker := make(chan struct{})
		defer close(blocker)

		entered := make(chan struct{}, 1)
		slow := backendFunc("slow", func(http.ResponseWriter, *http.Request) {
			select {
			case entered <- struct{}{}:
			default:
			}
			<-blocker
		})

		subject := newServer(slow, backend("fast"))
		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		// Occupy the slow upstream.
		pending := make(chan string, 1)
		go func() {
			defer GinkgoRecover()
			_, body := get(front, "/")
			pending <- body
		}()
		Eventually(entered).Should(Receive())

		// The next request must complete without waiting for the first.
		_, body := get(front, "/")
		Expect(body).To(Equal("fast"))

		// The stalled request recovers by retrying the healthy upstream.
		Eventually(pending, "5s").Should(Receive(Equal("fast")))
	})

	It("replays the request body when retrying", func() {
		var received string
		live := backendFunc("live", func(writer http.ResponseWriter, request *http.Request) {
			content, _ := ioutil.ReadAll(request.Body)
			received = string(content)
			io.WriteString(writer, "live")
		})

		subject := newServer(deadBackend(), live)
		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		response, err := http.Post(front.URL+"/submit", "text/plain", strings.NewReader("<payload>"))
		Expect(err).ShouldNot(HaveOccurred())
		defer response.Body.Close()

		Expect(response.StatusCode).To(Equal(http.StatusOK))
		Expect(received).To(Equal("<payload>"))
	})

	It("notifies the observer of forwarding outcomes", func() {
		observer := &recordingObserver{}
		dead := deadBackend()
		live := backend("live")

		subject := newServer(dead, live)
		subject.Observer = observer

		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		statusCode, _ := get(front, "/")
		Expect(statusCode).To(Equal(http.StatusOK))

		observer.mutex.Lock()
		defer observer.mutex.Unlock()
		Expect(observer.failures).To(ConsistOf(dead.Address))
		Expect(observer.successes).To(ConsistOf(live.Address))
	})

	It("skips upstreams the observer reports ineligible", func() {
		tracker := &health.Tracker{
			Threshold: 1,
			Cooldown:  time.Hour,
		}
		dead := deadBackend()

		subject := newServer(dead, backend("live"))
		subject.Observer = tracker

		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		for i := 0; i < 3; i++ {
			statusCode, body := get(front, "/")
			Expect(statusCode).To(Equal(http.StatusOK))
			Expect(body).To(Equal("live"))
		}

		// Only the first request should have probed the dead upstream.
		record, ok := tracker.Record(dead)
		Expect(ok).To(BeTrue())
		Expect(record.ConsecutiveFailures).To(Equal(1))
	})

	It("intercepts local health probes", func() {
		subject := newServer(deadBackend())
		subject.HealthCheck = &fehealth.Endpoint{Pool: subject.Pool}

		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		statusCode, body := get(front, "/health")

		Expect(statusCode).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("1 upstream(s)"))
	})

	It("proxies /health for external hosts", func() {
		echo := backendFunc("echo", func(writer http.ResponseWriter, request *http.Request) {
			io.WriteString(writer, "upstream owns "+request.URL.Path)
		})

		subject := newServer(echo)
		subject.HealthCheck = &fehealth.Endpoint{Pool: subject.Pool}

		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		request, err := http.NewRequest("GET", front.URL+"/health", nil)
		Expect(err).ShouldNot(HaveOccurred())
		request.Host = "www.example.org"

		response, err := http.DefaultClient.Do(request)
		Expect(err).ShouldNot(HaveOccurred())
		defer response.Body.Close()

		content, err := ioutil.ReadAll(response.Body)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(string(content)).To(Equal("upstream owns /health"))
	})

	It("relays websocket sessions", func() {
		upgrader := websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		}

		echo := backendFunc("ws", func(writer http.ResponseWriter, request *http.Request) {
			conn, err := upgrader.Upgrade(writer, request, nil)
			if err != nil {
				return
			}
			defer conn.Close()

			for {
				messageType, message, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if err := conn.WriteMessage(messageType, message); err != nil {
					return
				}
			}
		})

		subject := newServer(echo)
		front := httptest.NewServer(subject.Handler())
		defer front.Close()

		wsURL := "ws" + strings.TrimPrefix(front.URL, "http")
		conn, response, err := websocket.DefaultDialer.Dial(wsURL+"/socket", nil)
		Expect(err).ShouldNot(HaveOccurred())
		defer conn.Close()
		defer response.Body.Close()

		err = conn.WriteMessage(websocket.TextMessage, []byte("<ping>"))
		Expect(err).ShouldNot(HaveOccurred())

		_, message, err := conn.ReadMessage()
		Expect(err).ShouldNot(HaveOccurred())
		Expect(string(message)).To(Equal("<ping>"))
	})
})
