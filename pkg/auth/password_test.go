package auth_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/lillylive/lilly/pkg/auth"
)

var _ = Describe("PasswordHasher", func() {
	var hasher *auth.PasswordHasher

	BeforeEach(func() {
		hasher = &auth.PasswordHasher{Cost: bcrypt.MinCost}
	})

	It("never stores the plaintext", func() {
		hash, err := hasher.Hash("s3cret!")
		Expect(err).NotTo(HaveOccurred())
		Expect(hash).NotTo(ContainSubstring("s3cret!"))
		Expect(hash).To(HavePrefix("$2"))
	})

	It("matches the original password only", func() {
		hash, err := hasher.Hash("s3cret!")
		Expect(err).NotTo(HaveOccurred())
		Expect(hasher.Compare(hash, "s3cret!")).To(BeTrue())
		Expect(hasher.Compare(hash, "wrong")).To(BeFalse())
	})

	It("does not match against a malformed hash", func() {
		Expect(hasher.Compare("not-a-hash", "s3cret!")).To(BeFalse())
	})

	It("rejects passwords longer than 72 bytes", func() {
		_, err := hasher.Hash(strings.Repeat("a", 73))
		Expect(err).To(MatchError(auth.ErrPasswordTooLong))
	})

	It("defaults to cost 10", func() {
		h := auth.NewPasswordHasher()
		hash, err := h.Hash("pw")
		Expect(err).NotTo(HaveOccurred())
		cost, err := bcrypt.Cost([]byte(hash))
		Expect(err).NotTo(HaveOccurred())
		Expect(cost).To(Equal(auth.DefaultCost))
	})
})
