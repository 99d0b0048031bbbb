package auth_test

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lillylive/lilly/pkg/auth"
)

var _ = Describe("TokenManager", func() {
	var (
		now     time.Time
		manager *auth.TokenManager
		id      auth.Identity
	)

	BeforeEach(func() {
		now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		var err error
		manager, err = auth.NewTokenManager("test-secret", auth.WithClock(func() time.Time { return now }))
		Expect(err).NotTo(HaveOccurred())
		id = auth.Identity{UserID: "u-1", Email: "ada@example.com", Nickname: "Ada"}
	})

	It("requires a secret", func() {
		_, err := auth.NewTokenManager("")
		Expect(err).To(MatchError(auth.ErrMissingSecret))
	})

	It("round-trips identity claims with a seven day expiry", func() {
		token, err := manager.Issue(id)
		Expect(err).NotTo(HaveOccurred())

		claims, err := manager.Verify(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.UserID).To(Equal("u-1"))
		Expect(claims.Email).To(Equal("ada@example.com"))
		Expect(claims.Nickname).To(Equal("Ada"))
		Expect(claims.IssuedAt).To(BeTemporally("==", now))
		Expect(claims.ExpiresAt).To(BeTemporally("==", now.Add(7*24*time.Hour)))
	})

	It("uses the web client's claim names", func() {
		token, err := manager.Issue(id)
		Expect(err).NotTo(HaveOccurred())

		raw := jwt.MapClaims{}
		_, _, err = jwt.NewParser().ParseUnverified(token, raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(HaveKeyWithValue("userId", "u-1"))
		Expect(raw).To(HaveKeyWithValue("nickname", "Ada"))
		Expect(raw).To(HaveKey("exp"))
	})

	It("rejects expired tokens", func() {
		token, err := manager.Issue(id)
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(7*24*time.Hour + time.Minute)
		_, err = manager.Verify(token)
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("rejects tokens signed with another secret", func() {
		other, err := auth.NewTokenManager("other-secret")
		Expect(err).NotTo(HaveOccurred())
		token, err := other.Issue(id)
		Expect(err).NotTo(HaveOccurred())

		_, err = manager.Verify(token)
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("rejects the none algorithm", func() {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"userId": "u-1",
			"exp":    now.Add(time.Hour).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).NotTo(HaveOccurred())

		_, err = manager.Verify(unsigned)
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	It("rejects garbage", func() {
		_, err := manager.Verify("not.a.token")
		Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
	})

	Describe("DecodeUnverified", func() {
		It("reads the claims without the secret", func() {
			token, err := manager.Issue(id)
			Expect(err).NotTo(HaveOccurred())

			claims, err := auth.DecodeUnverified(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Nickname).To(Equal("Ada"))
		})

		It("fails on malformed tokens", func() {
			_, err := auth.DecodeUnverified("garbage")
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})
	})
})
