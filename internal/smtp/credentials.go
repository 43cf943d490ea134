package smtp

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrSenderNotFound is returned by a CredentialSource when no credentials
// exist for the requested sender key.
var ErrSenderNotFound = errors.New("sender not found")

// Credentials are the SMTP account details for one sender.
type Credentials struct {
	Name     string `yaml:"name" validate:"required"`
	Email    string `yaml:"email" validate:"required,email"`
	Password string `yaml:"pass" validate:"required"`
	Host     string `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port     int    `yaml:"port" validate:"required,min=1,max=65535"`
}

// CredentialSource resolves a sender key to its SMTP credentials.
type CredentialSource interface {
	Lookup(key string) (Credentials, error)
}

// credentialsFile is the on-disk layout of the credentials file.
type credentialsFile struct {
	Senders map[string]Credentials `yaml:"senders"`
}

// FileCredentials is a CredentialSource backed by a YAML document.
// It is read-only after loading and safe for concurrent use.
type FileCredentials struct {
	senders map[string]Credentials
}

// LoadCredentials reads and validates the credentials file at path.
func LoadCredentials(path string) (*FileCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return ParseCredentials(data)
}

// ParseCredentials decodes and validates a credentials document. Sender keys
// are matched case-insensitively.
func ParseCredentials(data []byte) (*FileCredentials, error) {
	var doc credentialsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	fc := &FileCredentials{senders: make(map[string]Credentials, len(doc.Senders))}
	for _, key := range sortedKeys(doc.Senders) {
		c := doc.Senders[key]
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("invalid credentials for sender %q: %w", key, describe(err))
		}
		fc.senders[strings.ToLower(strings.TrimSpace(key))] = c
	}

	return fc, nil
}

// Lookup returns the credentials stored for key.
func (f *FileCredentials) Lookup(key string) (Credentials, error) {
	c, ok := f.senders[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Credentials{}, fmt.Errorf("%w: %q", ErrSenderNotFound, key)
	}
	return c, nil
}

// Keys returns the configured sender keys in sorted order.
func (f *FileCredentials) Keys() []string {
	return sortedKeys(f.senders)
}

func sortedKeys(m map[string]Credentials) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// describe flattens validator errors into "field: rule" pairs.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(parts, ", "))
}
