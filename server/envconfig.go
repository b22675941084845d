package server

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Credentials is the endpoint configuration the server benchmarks against.
// Both fields are opaque to the measurement core.
type Credentials struct {
	BaseURL string
	APIKey  string
}

const defaultBaseURL = "https://api.openai.com/v1"

// CredentialsFromEnvironment reads BASE_URL and API_KEY. A missing API key is
// allowed for keyless local endpoints; an unparseable BASE_URL is a
// configuration error.
func CredentialsFromEnvironment() (Credentials, error) {
	creds := Credentials{
		BaseURL: os.Getenv("BASE_URL"),
		APIKey:  os.Getenv("API_KEY"),
	}
	if creds.BaseURL == "" {
		creds.BaseURL = defaultBaseURL
	}
	if !isValidURL(creds.BaseURL) {
		return creds, fmt.Errorf("invalid BASE_URL: %s", creds.BaseURL)
	}
	return creds, nil
}

// DefaultModelsFromEnvironment parses the optional MODELS variable, a
// comma-separated list used when a benchmark request names no models. Empty
// means "ask the endpoint".
func DefaultModelsFromEnvironment() []string {
	var models []string
	for _, name := range strings.Split(os.Getenv("MODELS"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			models = append(models, name)
		}
	}
	return models
}

func isValidURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return parsedURL.Scheme != "" && parsedURL.Host != ""
}
