package proxy_test

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
	"time"

	"github.com/chrisjchandler/Riffy/src/proxy"
	"github.com/chrisjchandler/Riffy/src/upstream"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func targetFor(server *httptest.Server) *upstream.Target {
	u, err := url.Parse(server.URL)
	Expect(err).ShouldNot(HaveOccurred())

	return &upstream.Target{
		Description: u.Hostname(),
		Address:     u.Host,
	}
}

// deadTarget returns a target whose port was bound and then released, so
// connections to it are refused.
func deadTarget() *upstream.Target {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).ShouldNot(HaveOccurred())

	address := listener.Addr().String()
	listener.Close()

	return &upstream.Target{Description: "dead", Address: address}
}

var _ = Describe("Forwarder", func() {
	var (
		subject        *proxy.Forwarder
		backend        *httptest.Server
		backendHandler http.HandlerFunc
	)

	BeforeEach(func() {
		logger := log.New(GinkgoWriter, "", 0)
		subject = proxy.NewForwarder(time.Second, 250*time.Millisecond, logger)

		backendHandler = func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			io.WriteString(writer, "<response body>")
		}
		backend = httptest.NewServer(http.HandlerFunc(
			func(writer http.ResponseWriter, request *http.Request) {
				backendHandler(writer, request)
			},
		))
	})

	AfterEach(func() {
		backend.Close()
	})

	It("relays the response to the client", func() {
		writer := httptest.NewRecorder()
		request := httptest.NewRequest("GET", "http://proxy.example.org/path", nil)

		result := subject.Forward(writer, request, targetFor(backend))

		Expect(result.Outcome).To(Equal(proxy.OutcomeSuccess))
		Expect(result.StatusCode).To(Equal(http.StatusOK))
		Expect(result.HeaderSent).To(BeTrue())
		Expect(result.BytesOut).To(Equal(int64(len("<response body>"))))
		Expect(writer.Code).To(Equal(http.StatusOK))
		Expect(writer.Body.String()).To(Equal("<response body>"))
	})

	It("relays upstream error statuses without retrying semantics", func() {
		backendHandler = func(writer http.ResponseWriter, request *http.Request) {
			http.Error(writer, "<boom>", http.StatusInternalServerError)
		}

		writer := httptest.NewRecorder()
		request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)

		result := subject.Forward(writer, request, targetFor(backend))

		Expect(result.Outcome).To(Equal(proxy.OutcomeSuccess))
		Expect(result.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(writer.Code).To(Equal(http.StatusInternalServerError))
	})

	It("relays the request body", func() {
		var received string
		backendHandler = func(writer http.ResponseWriter, request *http.Request) {
			content, _ := ioutil.ReadAll(request.Body)
			received = string(content)
			writer.WriteHeader(http.StatusNoContent)
		}

		writer := httptest.NewRecorder()
		request := httptest.NewRequest(
			"POST",
			"http://proxy.example.org/submit",
			strings.NewReader("<request body>"),
		)

		result := subject.Forward(writer, request, targetFor(backend))

		Expect(result.Outcome).To(Equal(proxy.OutcomeSuccess))
		Expect(received).To(Equal("<request body>"))
	})

	Describe("header handling", func() {
		var upstreamHeaders http.Header
		var upstreamHost string

		BeforeEach(func() {
			backendHandler = func(writer http.ResponseWriter, request *http.Request) {
				upstreamHeaders = request.Header.Clone()
				upstreamHost = request.Host
				writer.WriteHeader(http.StatusOK)
			}
		})

		It("appends the client address to X-Forwarded-For", func() {
			writer := httptest.NewRecorder()
			request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)
			request.Header.Set("X-Forwarded-For", "10.0.0.1")

			subject.Forward(writer, request, targetFor(backend))

			Expect(upstreamHeaders.Get("X-Forwarded-For")).To(Equal("10.0.0.1, 192.0.2.1"))
		})

		It("adds X-Forwarded-For for direct clients", func() {
			writer := httptest.NewRecorder()
			request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)

			subject.Forward(writer, request, targetFor(backend))

			Expect(upstreamHeaders.Get("X-Forwarded-For")).To(Equal("192.0.2.1"))
		})

		It("records the original host in X-Forwarded-Host", func() {
			writer := httptest.NewRecorder()
			request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)

			subject.Forward(writer, request, targetFor(backend))

			Expect(upstreamHost).To(Equal(targetFor(backend).Address))
			Expect(upstreamHeaders.Get("X-Forwarded-Host")).To(Equal("proxy.example.org"))
			Expect(upstreamHeaders.Get("X-Forwarded-Proto")).To(Equal("http"))
		})

		It("does not forward hop-by-hop headers", func() {
			writer := httptest.NewRecorder()
			request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)
			request.Header.Set("Keep-Alive", "timeout=5")
			request.Header.Set("Proxy-Authorization", "<credentials>")
			request.Header.Set("Custom-Header", "<value>")

			subject.Forward(writer, request, targetFor(backend))

			Expect(upstreamHeaders.Get("Keep-Alive")).To(BeEmpty())
			Expect(upstreamHeaders.Get("Proxy-Authorization")).To(BeEmpty())
			Expect(upstreamHeaders.Get("Custom-Header")).To(Equal("<value>"))
		})
	})

	Describe("without NewForwarder", func() {
		It("builds a default transport on first use", func() {
			literal := &proxy.Forwarder{
				ConnectTimeout:  time.Second,
				ResponseTimeout: 250 * time.Millisecond,
			}

			writer := httptest.NewRecorder()
			request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)

			result := literal.Forward(writer, request, targetFor(backend))

			Expect(result.Outcome).To(Equal(proxy.OutcomeSuccess))
			Expect(writer.Body.String()).To(Equal("<response body>"))
		})

		It("still distinguishes dial failures from timeouts", func() {
			blocker := make(chan struct{})
			defer close(blocker)

			backendHandler = func(writer http.ResponseWriter, request *http.Request) {
				<-blocker
			}

			literal := &proxy.Forwarder{
				ConnectTimeout:  time.Second,
				ResponseTimeout: 250 * time.Millisecond,
			}

			writer := httptest.NewRecorder()
			request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)

			result := literal.Forward(writer, request, deadTarget())
			Expect(result.Outcome).To(Equal(proxy.OutcomeUnreachable))

			result = literal.Forward(writer, request, targetFor(backend))
			Expect(result.Outcome).To(Equal(proxy.OutcomeTimeout))
		})
	})

	It("classifies a refused connection as unreachable", func() {
		writer := httptest.NewRecorder()
		request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)

		result := subject.Forward(writer, request, deadTarget())

		Expect(result.Outcome).To(Equal(proxy.OutcomeUnreachable))
		Expect(result.HeaderSent).To(BeFalse())
		Expect(result.Err).Should(HaveOccurred())
	})

	It("classifies a slow upstream as a timeout", func() {
		blocker := make(chan struct{})
		defer close(blocker)

		backendHandler = func(writer http.ResponseWriter, request *http.Request) {
			<-blocker
		}

		writer := httptest.NewRecorder()
		request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)

		result := subject.Forward(writer, request, targetFor(backend))

		Expect(result.Outcome).To(Equal(proxy.OutcomeTimeout))
		Expect(result.HeaderSent).To(BeFalse())
	})

	It("classifies client cancellation as client-gone", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		writer := httptest.NewRecorder()
		request := httptest.NewRequest("GET", "http://proxy.example.org/", nil)
		request = request.WithContext(ctx)

		result := subject.Forward(writer, request, targetFor(backend))

		Expect(result.Outcome).To(Equal(proxy.OutcomeClientGone))
		Expect(result.Outcome.IsFailure()).To(BeFalse())
	})
})
