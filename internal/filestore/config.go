package filestore

import "strings"

// Provider names the object store implementation behind a Config.
type Provider string

const ProviderMinIO Provider = "minio"

// Config locates the object store that holds shared odatasql config files.
type Config struct {
	Provider Provider `yaml:"provider"`

	// Endpoint is host:port. An http:// or https:// prefix is accepted and
	// decides UseSSL.
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region,omitempty"`
}

// DefaultConfig returns a MinIO config without TLS.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// HostPort returns the endpoint without a URL scheme and whether TLS
// should be used.
func (c *Config) HostPort() (string, bool) {
	ep := strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	switch {
	case strings.HasPrefix(ep, "https://"):
		return strings.TrimPrefix(ep, "https://"), true
	case strings.HasPrefix(ep, "http://"):
		return strings.TrimPrefix(ep, "http://"), false
	}
	return ep, c.UseSSL
}
