// Package model defines the provider-agnostic abstractions for talking to
// language models: a normalized Request/Response shape, tool declarations and
// a scriptable MockModel for tests. Provider adapters (openai, anthropic)
// live in sub-packages so callers only pull in the SDKs they use.
package model
