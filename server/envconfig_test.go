package server

import (
	"os"
	"testing"
)

func TestCredentialsFromEnvironment(t *testing.T) {
	os.Setenv("BASE_URL", "https://llm.example.com/v1")
	os.Setenv("API_KEY", "test-key")
	defer os.Unsetenv("BASE_URL")
	defer os.Unsetenv("API_KEY")

	creds, err := CredentialsFromEnvironment()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if creds.BaseURL != "https://llm.example.com/v1" {
		t.Errorf("Expected configured base URL, got %s", creds.BaseURL)
	}
	if creds.APIKey != "test-key" {
		t.Errorf("Expected configured API key, got %s", creds.APIKey)
	}
}

func TestCredentialsDefaultBaseURL(t *testing.T) {
	os.Unsetenv("BASE_URL")
	os.Unsetenv("API_KEY")

	creds, err := CredentialsFromEnvironment()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if creds.BaseURL != defaultBaseURL {
		t.Errorf("Expected default base URL, got %s", creds.BaseURL)
	}
	if creds.APIKey != "" {
		t.Errorf("Expected empty API key, got %s", creds.APIKey)
	}
}

func TestCredentialsInvalidBaseURL(t *testing.T) {
	os.Setenv("BASE_URL", "not a url")
	defer os.Unsetenv("BASE_URL")

	if _, err := CredentialsFromEnvironment(); err == nil {
		t.Fatal("Expected an error for an invalid BASE_URL")
	}
}

func TestDefaultModelsFromEnvironment(t *testing.T) {
	os.Setenv("MODELS", "gpt-4, gpt-3.5-turbo, ,")
	defer os.Unsetenv("MODELS")

	models := DefaultModelsFromEnvironment()
	if len(models) != 2 {
		t.Fatalf("Expected 2 models, got %d (%v)", len(models), models)
	}
	if models[0] != "gpt-4" || models[1] != "gpt-3.5-turbo" {
		t.Errorf("Unexpected models: %v", models)
	}
}

func TestDefaultModelsUnset(t *testing.T) {
	os.Unsetenv("MODELS")

	if models := DefaultModelsFromEnvironment(); len(models) != 0 {
		t.Errorf("Expected no models, got %v", models)
	}
}
