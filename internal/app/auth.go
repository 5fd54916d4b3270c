package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"

	"github.com/klabast/wb-services/newsletter/pkg/logging"
)

const DefaultAuthFile = "auth.secret"

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// AdminAuth guards the maintenance endpoints with Basic Auth against an
// Argon2id hash kept in auth.secret ("user:hash").
type AdminAuth struct {
	User   string
	hash   []byte
	logger *logging.Logger
}

// ResolveAuthFile makes a relative auth file path relative to the binary
func ResolveAuthFile(path string) (string, error) {
	if path == "" {
		path = DefaultAuthFile
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	execPath, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "failed to get executable path")
	}
	return filepath.Join(filepath.Dir(execPath), path), nil
}

// LoadAdminAuth reads credentials from path. A missing file leaves the admin
// endpoints unprotected, which is only meant for local development.
func LoadAdminAuth(path string, logger *logging.Logger) (*AdminAuth, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &AdminAuth{logger: logger.With(logging.Fields{"component": "admin-auth"})}
	ctx := context.Background()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			a.logger.Warn(ctx, "No auth file found, admin endpoints are UNPROTECTED (local development only)", logging.Fields{
				"expected_file": path,
				"create_with":   "newsletter hash-password",
			}, nil)
			return a, nil
		}
		return nil, errors.Wrap(err, "failed to read auth file")
	}

	user, hash, ok := strings.Cut(strings.TrimSpace(string(data)), ":")
	if !ok {
		return nil, errors.New("invalid auth file format (expected: username:hash)")
	}
	a.User = user
	a.hash = []byte(hash)

	a.logger.Info(ctx, "Basic Auth enabled for admin endpoints", logging.Fields{"user": user, "file": path})
	return a, nil
}

// Enabled reports whether credentials were loaded
func (a *AdminAuth) Enabled() bool {
	return a != nil && a.hash != nil
}

// HashPassword creates an Argon2id hash of the password
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "failed to generate salt")
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$salt$hash
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword verifies a password against an Argon2id hash
func VerifyPassword(password, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return false, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return false, errors.New("not an argon2id hash")
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, errors.Wrap(err, "failed to parse hash parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errors.Wrap(err, "failed to decode salt")
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, errors.Wrap(err, "failed to decode hash")
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, uint8(threads), uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// Require wraps next with Basic Auth
func (a *AdminAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1

		passMatch := false
		if ok && userMatch {
			var err error
			passMatch, err = VerifyPassword(pass, string(a.hash))
			if err != nil {
				a.logger.Error(r.Context(), "Error verifying password", nil, err)
				passMatch = false
			}
		}

		if !ok || !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Newsletter Admin"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			a.logger.Warn(r.Context(), "Failed admin auth attempt", logging.Fields{
				"remote_addr": r.RemoteAddr,
				"user":        user,
			}, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CreateAuthFile writes "username:hash" to path with mode 0400, asking on
// in/out before replacing an existing file unless overwrite is set.
func CreateAuthFile(path, username, password string, overwrite bool, in io.Reader, out io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			fmt.Fprintf(out, "Auth file already exists: %s\n", path)
			fmt.Fprint(out, "Overwrite? (y/N): ")
			response, _ := bufio.NewReader(in).ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "y" && response != "yes" {
				return errors.New("aborted")
			}
		}
		// the file is read-only, so replace rather than truncate
		if err := os.Remove(path); err != nil {
			return errors.Wrap(err, "failed to remove existing auth file")
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	if err := os.WriteFile(path, []byte(username+":"+hash+"\n"), 0400); err != nil {
		return errors.Wrap(err, "failed to write auth file")
	}

	fmt.Fprintf(out, "✅ Auth file created: %s (mode: 0400 read-only)\n", path)
	fmt.Fprintf(out, "   Username: %s\n", username)
	return nil
}
