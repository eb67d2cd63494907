package doccontext

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSizeBytes is the upload size ceiling applied before any network
// call (10 MiB, matching the backend pipeline's own limit)
const DefaultMaxSizeBytes = 10 * 1024 * 1024

// Policy holds the local validation rules applied to a document before an
// upload attempt is started
type Policy struct {
	MaxSizeBytes int64    `yaml:"max_size_bytes"`
	MIMEKeywords []string `yaml:"mime_keywords"` // declared MIME type must contain one of these
}

// DefaultPolicy accepts PDFs up to 10 MiB
func DefaultPolicy() Policy {
	return Policy{
		MaxSizeBytes: DefaultMaxSizeBytes,
		MIMEKeywords: []string{"pdf"},
	}
}

// LoadPolicy reads a policy from a YAML file, filling unset fields from the
// defaults. A missing file yields the default policy.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return policy, nil
		}
		return policy, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	var loaded Policy
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return policy, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}

	if loaded.MaxSizeBytes > 0 {
		policy.MaxSizeBytes = loaded.MaxSizeBytes
	}
	if len(loaded.MIMEKeywords) > 0 {
		policy.MIMEKeywords = loaded.MIMEKeywords
	}

	return policy, nil
}

// Validate checks a document against the policy. It returns a
// *ValidationError describing the first failed check, or nil.
func (p Policy) Validate(upload Upload) error {
	accepted := false
	declared := strings.ToLower(upload.MIMEType)
	for _, keyword := range p.MIMEKeywords {
		if strings.Contains(declared, strings.ToLower(keyword)) {
			accepted = true
			break
		}
	}
	if !accepted {
		return &ValidationError{Reason: "please select a PDF file only"}
	}

	size := upload.SizeBytes
	if declared := int64(len(upload.Data)); declared > size {
		size = declared
	}
	if size > p.MaxSizeBytes {
		return &ValidationError{Reason: fmt.Sprintf("file size must be less than %d MB", p.MaxSizeBytes/(1024*1024))}
	}

	return nil
}
