package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lillylive/lilly/pkg/storage"
	"github.com/lillylive/lilly/pkg/storage/sqlite"
	"github.com/lillylive/lilly/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("SQLite", func() storage.Driver {
	driver, err := sqlite.NewDriver(context.Background(), ":memory:")
	Expect(err).NotTo(HaveOccurred())
	return driver
})

var _ = Describe("NewDriver", func() {
	It("creates a file database that survives reopening", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "lilly.sqlite")

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())

		_, err = d.CreateUser(ctx, &storage.User{Nickname: "Ada", Email: "ada@example.com", PasswordHash: "h"})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Close()).To(Succeed())

		reopened, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		u, err := reopened.GetUserByEmail(ctx, "ada@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Nickname).To(Equal("Ada"))
	})
})
