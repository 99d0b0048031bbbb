// Package storagetest holds the behaviour every storage.Driver must share.
package storagetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lillylive/lilly/pkg/storage"
)

// DescribeDriver registers the shared driver tests. newDriver is called once
// per test and the returned driver is closed afterwards.
func DescribeDriver(name string, newDriver func() storage.Driver) bool {
	return Describe(name+" user directory", func() {
		var (
			ctx    context.Context
			driver storage.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		newUser := func(email string) *storage.User {
			return &storage.User{Nickname: "Ada", Email: email, PasswordHash: "$2a$10$hash"}
		}

		It("creates a user with an id and creation time", func() {
			before := time.Now().Add(-time.Second)

			created, err := driver.CreateUser(ctx, newUser("ada@example.com"))

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.CreatedAt).To(BeTemporally(">", before))
			Expect(created.PasswordHash).To(Equal("$2a$10$hash"))
		})

		It("finds users case-insensitively", func() {
			created, err := driver.CreateUser(ctx, newUser("  Ada@Example.COM "))
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Email).To(Equal("ada@example.com"))

			found, err := driver.GetUserByEmail(ctx, "ADA@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))
			Expect(found.Nickname).To(Equal("Ada"))
			Expect(found.PasswordHash).To(Equal("$2a$10$hash"))
			Expect(found.CreatedAt).To(BeTemporally("~", created.CreatedAt, time.Second))
		})

		It("rejects duplicate emails", func() {
			_, err := driver.CreateUser(ctx, newUser("ada@example.com"))
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.CreateUser(ctx, newUser("ADA@example.com"))
			Expect(errors.Is(err, storage.ErrEmailTaken)).To(BeTrue())
		})

		It("lets exactly one concurrent signup win", func() {
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				wins  int
				taken int
			)
			for range 8 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := driver.CreateUser(ctx, newUser("race@example.com"))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case errors.Is(err, storage.ErrEmailTaken):
						taken++
					default:
						Fail("unexpected error: " + err.Error())
					}
				}()
			}
			wg.Wait()
			Expect(wins).To(Equal(1))
			Expect(taken).To(Equal(7))
		})

		It("returns NotFoundError for unknown emails", func() {
			_, err := driver.GetUserByEmail(ctx, "nobody@example.com")
			Expect(storage.IsNotFound(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("nobody@example.com"))
		})

		It("validates required fields", func() {
			_, err := driver.CreateUser(ctx, nil)
			Expect(err).To(MatchError(storage.ErrNilUser))

			_, err = driver.CreateUser(ctx, &storage.User{PasswordHash: "x", Email: " "})
			Expect(err).To(MatchError(storage.ErrMissingEmail))

			_, err = driver.CreateUser(ctx, &storage.User{Email: "a@b.c"})
			Expect(err).To(MatchError(storage.ErrMissingPasswordHash))
		})

		It("does not alias the caller's user", func() {
			u := newUser("Alias@Example.com")
			_, err := driver.CreateUser(ctx, u)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("Alias@Example.com"))
			Expect(strings.TrimSpace(u.ID)).To(BeEmpty())
		})
	})
}
