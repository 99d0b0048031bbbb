package lillycmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	lillycmder "github.com/lillylive/lilly/cmd/lilly"
)

var _ = Describe("NewLillyCmd", func() {
	It("registers every subcommand", func() {
		cmd := lillycmder.NewLillyCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "chat", "signup", "login", "logout", "whoami", "config", "version"))
	})

	It("carries the global flags", func() {
		cmd := lillycmder.NewLillyCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("prints the version", func() {
		cmd := lillycmder.NewLillyCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{"version"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version: dev"))
	})

	It("reaches the config command through the root", func() {
		cmd := lillycmder.NewLillyCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{"config", "get", "server.listen", "--config-dir", GinkgoT().TempDir()})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring(":8080"))
	})
})
