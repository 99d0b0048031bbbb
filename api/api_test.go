package api

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	lillylogger "github.com/lillylive/lilly/pkg/logger"
	"github.com/lillylive/lilly/pkg/storage/inmemory"
)

var _ = Describe("Server", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv(Config{ListenAddr: ":0"})
	})

	It("requires its collaborators", func() {
		_, err := NewServer(Config{}, Deps{}, lillylogger.Nop())
		Expect(err).To(HaveOccurred())

		_, err = NewServer(Config{}, Deps{Storer: inmemory.NewDriver()}, lillylogger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("answers ping", func() {
		req, err := http.NewRequest(http.MethodGet, "/ping", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := env.server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal(`"pong"`))
	})

	It("serves the landing page", func() {
		req, err := http.NewRequest(http.MethodGet, "/", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := env.server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("Meet Lilly"))
	})

	It("serves landing page assets", func() {
		req, err := http.NewRequest(http.MethodGet, "/style.css", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := env.server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
	})

	It("renders unknown routes as JSON errors", func() {
		resp, decoded := doJSON(env.server, http.MethodGet, "/nope", "")
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		Expect(decoded).To(HaveKey("error"))
	})

	It("answers CORS preflight", func() {
		req, err := http.NewRequest(http.MethodOptions, "/api/chat", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Origin", "https://lilly.example")
		req.Header.Set("Access-Control-Request-Method", "POST")

		resp, err := env.server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))
		Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})
})
