package pdf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Credentials contains the passwords for an encrypted catalog.
type Credentials struct {
	UserPassword  string `json:"user_password,omitempty" yaml:"user_password,omitempty" mapstructure:"user_password"`
	OwnerPassword string `json:"owner_password,omitempty" yaml:"owner_password,omitempty" mapstructure:"owner_password"`
}

// IsZero reports whether no password is set.
func (c Credentials) IsZero() bool {
	return c.UserPassword == "" && c.OwnerPassword == ""
}

// decryptedName is the file written into the work dir for encrypted inputs.
const decryptedName = "catalog_decrypted.pdf"

// IsEncrypted reports whether pdfcpu refuses to read the file without a password.
func IsEncrypted(path string) (bool, error) {
	_, err := api.PageCountFile(path)
	if err == nil {
		return false, nil
	}
	if IsPasswordError(err) {
		return true, nil
	}
	return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
}

// Prepare returns a path the renderers can read. Encrypted catalogs are
// decrypted with creds into workDir; other files are returned unchanged.
func Prepare(path, workDir string, creds Credentials, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrOpenDocument, path, err)
	}

	encrypted, err := IsEncrypted(path)
	if err != nil {
		// pdfcpu is stricter than the renderers; let them decide.
		logger.Debug("encryption check failed", "path", path, "error", err)
		return path, nil
	}
	if !encrypted {
		return path, nil
	}
	if creds.IsZero() {
		return "", fmt.Errorf("%w %q: document is encrypted and no password was given", ErrOpenDocument, path)
	}

	out := filepath.Join(workDir, decryptedName)
	if err := api.DecryptFile(path, out, decryptionConfig(creds)); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("%w %q: failed to decrypt: %v", ErrOpenDocument, path, err)
	}
	logger.Info("catalog decrypted", "path", path, "output", out)
	return out, nil
}

func decryptionConfig(creds Credentials) *model.Configuration {
	config := model.NewDefaultConfiguration()
	config.UserPW = creds.UserPassword
	config.OwnerPW = creds.OwnerPassword
	return config
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
