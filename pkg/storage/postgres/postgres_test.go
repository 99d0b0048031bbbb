package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lillylive/lilly/pkg/storage"
	"github.com/lillylive/lilly/pkg/storage/postgres"
	"github.com/lillylive/lilly/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("LILLY_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("LILLY_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = storagetest.DescribeDriver("PostgreSQL", func() storage.Driver {
	ctx := context.Background()
	driver, err := postgres.NewDriver(ctx, connStr())
	Expect(err).NotTo(HaveOccurred())

	// Clean all users before each test for isolation.
	_, err = driver.DB().ExecContext(ctx, "DELETE FROM users")
	Expect(err).NotTo(HaveOccurred())
	return driver
})

var _ = Describe("Dialect", func() {
	It("numbers placeholders", func() {
		Expect(postgres.Dialect.Placeholder(1)).To(Equal("$1"))
		Expect(postgres.Dialect.Placeholder(5)).To(Equal("$5"))
	})
})
