// Package provider contains translation provider implementations: an
// OpenAI-backed provider, HTTP providers for DeepL-style and Google-style
// endpoints, and a scriptable mock for tests. The orchestration core
// depends only on the transflow.Provider interface.
package provider

import "github.com/ZaguanLabs/transflow"

// Provider is the interface for translation backends.
// This is an alias to the main package interface for convenience.
type Provider = transflow.Provider

// Request is an alias to the main package type.
type Request = transflow.ProviderRequest

// Result is an alias to the main package type.
type Result = transflow.ProviderResult

// Detection is an alias to the main package type.
type Detection = transflow.Detection
