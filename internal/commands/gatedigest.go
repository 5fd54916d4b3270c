package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/klabast/wb-services/newsletter/internal/app"
)

// GateDigest handles the gate-digest subcommand. It prints the digest of the
// reader password for NEWSLETTER_GATE_DIGEST.
func GateDigest(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("gate-digest", flag.ContinueOnError)
	insecureUnmask := fs.Bool("insecure-unmask-password", false, "Show password as plain text")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: newsletter gate-digest [OPTIONS]\n\n")
		fmt.Fprintf(fs.Output(), "Prints the SHA-256 digest of the family password.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := NewPrompter(in, out)
	p.Unmasked = *insecureUnmask

	password, err := p.Confirmed("Family password")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "NEWSLETTER_GATE_DIGEST=%s\n", app.Digest(password))
	return nil
}
