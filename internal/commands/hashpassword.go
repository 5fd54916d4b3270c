package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/klabast/wb-services/newsletter/internal/app"
)

// HashPassword handles the hash-password subcommand: it writes the admin
// credentials file used to protect /admin.
func HashPassword(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	overwrite := fs.Bool("overwrite", false, "Overwrite existing auth file without asking")
	insecureUnmask := fs.Bool("insecure-unmask-password", false, "Show password as plain text (INSECURE!)")
	file := fs.String("file", os.Getenv("NEWSLETTER_AUTH_FILE"), "Path to auth file (default: auth.secret next to the binary)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: newsletter hash-password [OPTIONS]\n\n")
		fmt.Fprintf(fs.Output(), "Creates an auth.secret file with hashed password (Argon2id).\n\n")
		fmt.Fprintf(fs.Output(), "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), "\nEnvironment Variables:\n")
		fmt.Fprintf(fs.Output(), "  NEWSLETTER_AUTH_FILE    Path to auth file\n")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := app.ResolveAuthFile(*file)
	if err != nil {
		return err
	}

	p := NewPrompter(in, out)
	p.Unmasked = *insecureUnmask

	username, err := p.Line("Enter username: ")
	if err != nil {
		return err
	}
	if username == "" {
		return errors.New("username cannot be empty")
	}

	if *insecureUnmask {
		fmt.Fprintf(out, "⚠️  WARNING: Password will be visible on screen!\n")
	}
	password, err := p.Confirmed("Enter password")
	if err != nil {
		return err
	}

	return app.CreateAuthFile(path, username, password, *overwrite, p.reader, out)
}
